package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/lieability/games/lieability"
)

type Config struct {
	bind           string
	corsOrigins    []string
	natsPrefix     string
	natsURL        string
	pack           string
	packs          string
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	minPlayers        int
	maxPlayers        int
	rounds            int
	questionsPerRound int
	categories        int

	categoryTime   time.Duration
	readingTime    time.Duration
	lieTime        time.Duration
	voteTime       time.Duration
	revealTime     time.Duration
	scoreboardTime time.Duration
	gameEndTime    time.Duration

	foolPoints  []int
	truthPoints []int
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}

	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}

	if len(c.foolPoints) != len(c.truthPoints) {
		return errors.New("--fool-points and --truth-points must have the same number of entries")
	}

	if err := c.rules().Validate(); err != nil {
		return fmt.Errorf("invalid game rules: %w", err)
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}

	return "http"
}

func (c *Config) rules() lieability.Rules {
	r := lieability.Rules{
		MinPlayers:        c.minPlayers,
		MaxPlayers:        c.maxPlayers,
		TotalRounds:       c.rounds,
		QuestionsPerRound: c.questionsPerRound,
		Categories:        c.categories,

		CategorySelection: c.categoryTime,
		QuestionReading:   c.readingTime,
		LieSubmission:     c.lieTime,
		OptionSelection:   c.voteTime,
		TruthReveal:       c.revealTime,
		Scoreboard:        c.scoreboardTime,
		GameEndedDelay:    c.gameEndTime,
	}

	for i := range min(len(c.foolPoints), len(c.truthPoints)) {
		r.Points = append(r.Points, lieability.RoundPoints{Fool: c.foolPoints[i], Truth: c.truthPoints[i]})
	}

	return r
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LIEABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "lieability",
		Short:         "A party game of believable lies and hidden truths, played in the browser.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.version {
				fmt.Printf("lieability v%s\n", releaseVersion)

				return nil
			}

			if err := cfg.validate(); err != nil {
				return err
			}

			configureLogging(cfg)

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := lieability.DefaultRules()

	var fool, truth []int
	for _, p := range defaults.Points {
		fool = append(fool, p.Fool)
		truth = append(truth, p.Truth)
	}

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: LIEABILITY_BIND)")
	fs.StringSliceVar(&cfg.corsOrigins, "cors-origins", nil, "origins allowed to call the API and open websockets (env: LIEABILITY_CORS_ORIGINS)")
	fs.StringVar(&cfg.natsPrefix, "nats-prefix", "lieability", "subject prefix for relayed game events (env: LIEABILITY_NATS_PREFIX)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "relay game events to this NATS server (env: LIEABILITY_NATS_URL)")
	fs.StringVar(&cfg.pack, "pack", "", "default question pack (env: LIEABILITY_PACK)")
	fs.StringVar(&cfg.packs, "packs", "", "directory of .json/.yaml question packs, built-in packs if unset (env: LIEABILITY_PACKS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected players are removed (env: LIEABILITY_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: LIEABILITY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: LIEABILITY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: LIEABILITY_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: LIEABILITY_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: LIEABILITY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: LIEABILITY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: LIEABILITY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: LIEABILITY_VERSION)")

	fs.IntVar(&cfg.minPlayers, "min-players", defaults.MinPlayers, "players needed to start a game (env: LIEABILITY_MIN_PLAYERS)")
	fs.IntVar(&cfg.maxPlayers, "max-players", defaults.MaxPlayers, "most players allowed in one game (env: LIEABILITY_MAX_PLAYERS)")
	fs.IntVar(&cfg.rounds, "rounds", defaults.TotalRounds, "rounds per game, the last being the final round (env: LIEABILITY_ROUNDS)")
	fs.IntVar(&cfg.questionsPerRound, "questions-per-round", defaults.QuestionsPerRound, "questions in each non-final round (env: LIEABILITY_QUESTIONS_PER_ROUND)")
	fs.IntVar(&cfg.categories, "categories", defaults.Categories, "categories offered to the selector (env: LIEABILITY_CATEGORIES)")

	fs.DurationVar(&cfg.categoryTime, "category-time", defaults.CategorySelection, "time to pick a category (env: LIEABILITY_CATEGORY_TIME)")
	fs.DurationVar(&cfg.readingTime, "reading-time", defaults.QuestionReading, "time to read the question (env: LIEABILITY_READING_TIME)")
	fs.DurationVar(&cfg.lieTime, "lie-time", defaults.LieSubmission, "time to write a lie (env: LIEABILITY_LIE_TIME)")
	fs.DurationVar(&cfg.voteTime, "vote-time", defaults.OptionSelection, "time to pick an answer (env: LIEABILITY_VOTE_TIME)")
	fs.DurationVar(&cfg.revealTime, "reveal-time", defaults.TruthReveal, "time the reveal stays up (env: LIEABILITY_REVEAL_TIME)")
	fs.DurationVar(&cfg.scoreboardTime, "scoreboard-time", defaults.Scoreboard, "time the scoreboard stays up (env: LIEABILITY_SCOREBOARD_TIME)")
	fs.DurationVar(&cfg.gameEndTime, "game-end-time", defaults.GameEndedDelay, "time before a finished game returns to the lobby (env: LIEABILITY_GAME_END_TIME)")

	fs.IntSliceVar(&cfg.foolPoints, "fool-points", fool, "points per fooled player, one entry per round (env: LIEABILITY_FOOL_POINTS)")
	fs.IntSliceVar(&cfg.truthPoints, "truth-points", truth, "points for finding the truth, one entry per round (env: LIEABILITY_TRUTH_POINTS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, envValue(v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("lieability v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// envValue renders a viper value the way pflag parses it. Slices bound
// from flag defaults come back as Go slices, not comma lists.
func envValue(val any) string {
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ",")
	case []int:
		parts := make([]string, 0, len(v))
		for _, n := range v {
			parts = append(parts, fmt.Sprint(n))
		}

		return strings.Join(parts, ",")
	}

	return fmt.Sprintf("%v", val)
}
