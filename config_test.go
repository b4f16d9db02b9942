package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/lieability/games/lieability"
)

func parseFlags(t *testing.T, args ...string) *Config {
	t.Helper()

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse(args))

	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := parseFlags(t)

	require.NoError(t, cfg.validate())
	assert.Equal(t, lieability.DefaultRules(), cfg.rules())
	assert.Equal(t, "http", cfg.scheme())
}

func TestRuleFlags(t *testing.T) {
	cfg := parseFlags(t,
		"--rounds", "2",
		"--questions-per-round", "4",
		"--fool-points", "100,300",
		"--truth-points", "200,600",
		"--lie-time", "45s",
	)

	require.NoError(t, cfg.validate())

	r := cfg.rules()
	assert.Equal(t, 2, r.TotalRounds)
	assert.Equal(t, 4, r.QuestionsPerRound)
	assert.Equal(t, 45*time.Second, r.LieSubmission)
	assert.Equal(t, []lieability.RoundPoints{{Fool: 100, Truth: 200}, {Fool: 300, Truth: 600}}, r.Points)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"tls cert without key", []string{"--tls-cert", "cert.pem"}},
		{"port out of range", []string{"--port", "70000"}},
		{"points length mismatch", []string{"--fool-points", "1,2,3", "--truth-points", "1,2"}},
		{"points do not match rounds", []string{"--rounds", "2"}},
		{"max below min", []string{"--min-players", "5", "--max-players", "4"}},
		{"zero duration", []string{"--vote-time", "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, parseFlags(t, tt.args...).validate())
		})
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("LIEABILITY_MIN_PLAYERS", "3")
	t.Setenv("LIEABILITY_REVEAL_TIME", "7s")
	t.Setenv("LIEABILITY_NATS_URL", "nats://127.0.0.1:4222")

	cfg := parseFlags(t)

	assert.Equal(t, 3, cfg.minPlayers)
	assert.Equal(t, 7*time.Second, cfg.revealTime)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.natsURL)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("LIEABILITY_PORT", "9000")

	cfg := parseFlags(t, "--port", "9100")

	assert.Equal(t, 9100, cfg.port)
}
