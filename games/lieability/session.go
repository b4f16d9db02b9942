/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package lieability runs one Lie-Ability game: players write believable
// lies for trivia questions, then try to pick the truth out of everyone's
// lies. Points go to players who find the truth and to players whose lies
// fool others.
//
// A Session is an actor. Run owns every piece of game state and executes
// one message at a time; exported methods enqueue a message and wait for
// its result, and timer expiries arrive as messages too.
package lieability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Seednode/lieability/games/questions"
	"github.com/Seednode/lieability/games/timer"
)

const mailboxSize = 64

// QuestionSource supplies questions and filler lies. *questions.Pack
// implements it.
type QuestionSource interface {
	Candidates(exclude map[string]bool, n int, rng questions.Rand) []questions.Question
	FinalQuestion(exclude map[string]bool, rng questions.Rand) (questions.Question, bool)
	FillerLie(q questions.Question, exclude func(lie string) bool, rng questions.Rand) (string, bool)
}

// Settings carry a session's collaborators. Zero values fall back to the
// real clock, an OS-seeded generator and a no-op logger.
type Settings struct {
	Clock       clockwork.Clock
	Rand        Rand
	Logger      *zerolog.Logger
	Packs       map[string]QuestionSource
	DefaultPack string
}

type Session struct {
	id     string
	rules  Rules
	out    Broadcaster
	log    zerolog.Logger
	rng    Rand
	timers *timer.Registry

	packs     map[string]QuestionSource
	packNames []string

	mailbox chan func()
	started chan struct{}
	stopped chan struct{}
	once    sync.Once

	// Everything below is owned by the Run goroutine.
	pack       string
	phase      Phase
	seq        uint64
	round      int
	number     int
	question   *questions.Question
	categories []questions.Question
	selector   string
	options    []Option
	truth      int
	used       map[string]bool
	fillers    map[string]bool
	reveal     *Reveal
	players    *roster
}

func New(id string, rules Rules, out Broadcaster, settings Settings) (*Session, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	if out == nil {
		return nil, errors.New("session needs a broadcaster")
	}

	clock := settings.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	rng := settings.Rand
	if rng == nil {
		r, err := NewRand()
		if err != nil {
			return nil, err
		}
		rng = r
	}

	logger := zerolog.Nop()
	if settings.Logger != nil {
		logger = *settings.Logger
	}

	s := &Session{
		id:      id,
		rules:   rules,
		out:     out,
		log:     logger.With().Str("game_id", id).Logger(),
		rng:     rng,
		timers:  timer.New(clock),
		packs:   make(map[string]QuestionSource, len(settings.Packs)),
		mailbox: make(chan func(), mailboxSize),
		started: make(chan struct{}),
		stopped: make(chan struct{}),
		phase:   PhaseLobby,
		truth:   -1,
		used:    make(map[string]bool),
		fillers: make(map[string]bool),
		players: newRoster(),
	}

	for name, src := range settings.Packs {
		s.packs[name] = src
		s.packNames = append(s.packNames, name)
	}
	slices.Sort(s.packNames)

	switch {
	case settings.DefaultPack != "":
		if _, ok := s.packs[settings.DefaultPack]; !ok {
			return nil, fmt.Errorf("unknown question pack %q", settings.DefaultPack)
		}
		s.pack = settings.DefaultPack
	case len(s.packNames) > 0:
		s.pack = s.packNames[0]
	}

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Ready is closed once Run has started taking messages.
func (s *Session) Ready() <-chan struct{} {
	return s.started
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

// Run processes messages until ctx is cancelled. It may be called once.
func (s *Session) Run(ctx context.Context) error {
	first := false
	s.once.Do(func() {
		first = true
		close(s.started)
	})

	if !first {
		return errors.New("session already running")
	}

	defer close(s.stopped)
	defer s.timers.CancelAll()

	s.log.Debug().Msg("Session started")

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("Session stopped")

			return ctx.Err()
		case msg := <-s.mailbox:
			s.exec(msg)
		}
	}
}

func (s *Session) exec(msg func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Str("phase", s.phase.String()).
				Int("round", s.round).
				Int("question", s.number).
				Msg("Recovered from panic in game session")
		}
	}()

	msg()
}

// post enqueues a message without waiting for it. Timer callbacks use it.
func (s *Session) post(msg func()) {
	select {
	case s.mailbox <- msg:
	case <-s.stopped:
	}
}

type result[T any] struct {
	v   T
	err error
}

// call runs fn on the session goroutine and returns its result.
func call[T any](ctx context.Context, s *Session, fn func() (T, error)) (T, error) {
	var zero T

	select {
	case <-s.started:
	default:
		return zero, ErrNotReady
	}

	ch := make(chan result[T], 1)

	msg := func() {
		r := result[T]{err: ErrInternal}
		defer func() { ch <- r }()

		r.v, r.err = fn()
	}

	select {
	case s.mailbox <- msg:
	case <-s.stopped:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-ch:
		return r.v, r.err
	case <-s.stopped:
		select {
		case r := <-ch:
			return r.v, r.err
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func do(ctx context.Context, s *Session, fn func() error) error {
	_, err := call(ctx, s, func() (struct{}, error) {
		return struct{}{}, fn()
	})

	return err
}

// Join adds a participant. Joining is only possible in the lobby.
func (s *Session) Join(ctx context.Context, name string) (Player, error) {
	return call(ctx, s, func() (Player, error) {
		return s.join(name)
	})
}

// Leave removes a participant for good.
func (s *Session) Leave(ctx context.Context, id string) error {
	return do(ctx, s, func() error {
		return s.leave(id)
	})
}

// Reconnect marks a known participant connected again. Actions taken
// before the disconnect are kept.
func (s *Session) Reconnect(ctx context.Context, id string) bool {
	ok, _ := call(ctx, s, func() (bool, error) {
		return s.reconnect(id), nil
	})

	return ok
}

// Disconnect marks a participant disconnected. They stay in the roster but
// no longer count towards quorum.
func (s *Session) Disconnect(ctx context.Context, id string) bool {
	ok, _ := call(ctx, s, func() (bool, error) {
		return s.disconnect(id), nil
	})

	return ok
}

func (s *Session) Start(ctx context.Context) error {
	return do(ctx, s, s.start)
}

func (s *Session) ChooseCategory(ctx context.Context, id string, categoryID int) error {
	return do(ctx, s, func() error {
		return s.chooseCategory(id, categoryID)
	})
}

func (s *Session) SubmitLie(ctx context.Context, id, text string) error {
	return do(ctx, s, func() error {
		return s.submitLie(id, text)
	})
}

// SubmitAutoLie submits a prepared lie on the participant's behalf and
// returns it.
func (s *Session) SubmitAutoLie(ctx context.Context, id string) (string, error) {
	return call(ctx, s, func() (string, error) {
		return s.submitAutoLie(id)
	})
}

func (s *Session) CastVote(ctx context.Context, id, optionID string) error {
	return do(ctx, s, func() error {
		return s.castVote(id, optionID)
	})
}

func (s *Session) Like(ctx context.Context, id, targetID string) error {
	return do(ctx, s, func() error {
		return s.like(id, targetID)
	})
}

func (s *Session) UpdateAvatar(ctx context.Context, id, emoji, color string) error {
	return do(ctx, s, func() error {
		return s.updateAvatar(id, Avatar{Emoji: emoji, Color: color})
	})
}

func (s *Session) Rename(ctx context.Context, id, name string) error {
	return do(ctx, s, func() error {
		return s.rename(id, name)
	})
}

func (s *Session) ChangePack(ctx context.Context, name string) error {
	return do(ctx, s, func() error {
		return s.changePack(name)
	})
}

// Snapshot returns the public game state.
func (s *Session) Snapshot(ctx context.Context) (State, error) {
	return call(ctx, s, func() (State, error) {
		return s.state(), nil
	})
}

// View returns what one participant should see. An empty id returns the
// observer view.
func (s *Session) View(ctx context.Context, id string) (PlayerView, error) {
	return call(ctx, s, func() (PlayerView, error) {
		if id == "" {
			return s.view(nil), nil
		}

		p, ok := s.players.get(id)
		if !ok {
			return PlayerView{}, fmt.Errorf("%w: player %s", ErrNotFound, id)
		}

		return s.view(p), nil
	})
}

// Remaining returns the time left in the current phase.
func (s *Session) Remaining(ctx context.Context) time.Duration {
	d, _ := call(ctx, s, func() (time.Duration, error) {
		return s.timers.Remaining(string(s.phase)), nil
	})

	return d
}
