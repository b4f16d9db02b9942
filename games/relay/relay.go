/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package relay mirrors game events onto NATS so other services can follow
// a game without holding a websocket open.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Seednode/lieability/games/lieability"
)

const DefaultPrefix = "lieability"

// Publisher is the part of *nats.Conn the relay uses.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

type Config struct {
	URL           string
	Prefix        string
	MaxReconnects int
	ReconnectWait time.Duration
}

type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	GameID    string          `json:"gameId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type Relay struct {
	pub    Publisher
	prefix string
	clock  clockwork.Clock
	log    zerolog.Logger
	close  func()
}

func New(pub Publisher, prefix string, clock clockwork.Clock, logger zerolog.Logger) *Relay {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Relay{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "."),
		clock:  clock,
		log:    logger,
		close:  func() {},
	}
}

// Connect dials NATS and returns a relay publishing on it.
func Connect(cfg Config, logger zerolog.Logger) (*Relay, error) {
	opts := []nats.Option{
		nats.Name("lieability"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info().Str("url", nc.ConnectedUrl()).Msg("Relaying game events to NATS")

	r := New(nc, cfg.Prefix, nil, logger)
	r.close = nc.Close

	return r, nil
}

// Subject is where events of type t for game gameID are published.
func (r *Relay) Subject(gameID string, t lieability.EventType) string {
	return fmt.Sprintf("%s.%s.%s", r.prefix, gameID, t)
}

// validToken reports whether s can stand as one subject token.
func validToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t\r\n")
}

// Publish mirrors ev. Failures are logged and never reach the game.
func (r *Relay) Publish(gameID string, ev lieability.Event) {
	if !validToken(gameID) {
		r.log.Warn().Str("game_id", gameID).Msg("Refusing to relay event for game ID that is not a single subject token")

		return
	}

	payload, err := json.Marshal(ev.Data)
	if err != nil {
		r.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to encode relayed event")

		return
	}

	id := uuid.NewString()

	data, err := json.Marshal(envelope{
		EventID:   id,
		EventType: string(ev.Type),
		GameID:    gameID,
		Timestamp: r.clock.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		r.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to encode relay envelope")

		return
	}

	subject := r.Subject(gameID, ev.Type)

	err = r.pub.PublishMsg(&nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(ev.Type)},
			"Game-ID":    []string{gameID},
			"Event-ID":   []string{id},
		},
	})
	if err != nil {
		r.log.Warn().Err(err).Str("subject", subject).Msg("Failed to relay event")

		return
	}

	r.log.Debug().Str("subject", subject).Msg("Relayed event")
}

func (r *Relay) Close() {
	r.close()
}
