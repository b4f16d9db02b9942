package lieability

import (
	"errors"
	"fmt"
	"time"
)

// RoundPoints is what a fooled vote and a found truth are worth in a round.
type RoundPoints struct {
	Fool  int `json:"fool"`
	Truth int `json:"truth"`
}

// Rules are the tunables of a game. The last round is the final round and
// holds a single question with no category pick.
type Rules struct {
	MinPlayers        int
	MaxPlayers        int
	TotalRounds       int
	QuestionsPerRound int
	Categories        int

	CategorySelection time.Duration
	QuestionReading   time.Duration
	LieSubmission     time.Duration
	OptionSelection   time.Duration
	TruthReveal       time.Duration
	Scoreboard        time.Duration
	GameEndedDelay    time.Duration

	Points []RoundPoints
}

func DefaultRules() Rules {
	return Rules{
		MinPlayers:        2,
		MaxPlayers:        16,
		TotalRounds:       3,
		QuestionsPerRound: 8,
		Categories:        4,

		CategorySelection: 15 * time.Second,
		QuestionReading:   10 * time.Second,
		LieSubmission:     30 * time.Second,
		OptionSelection:   30 * time.Second,
		TruthReveal:       5 * time.Second,
		Scoreboard:        10 * time.Second,
		GameEndedDelay:    10 * time.Second,

		Points: []RoundPoints{
			{Fool: 500, Truth: 1000},
			{Fool: 1000, Truth: 2000},
			{Fool: 1500, Truth: 3000},
		},
	}
}

func (r Rules) Validate() error {
	switch {
	case r.MinPlayers < 1:
		return errors.New("minimum players must be at least 1")
	case r.MaxPlayers < r.MinPlayers:
		return errors.New("maximum players must not be below minimum players")
	case r.TotalRounds < 1:
		return errors.New("rounds must be at least 1")
	case r.QuestionsPerRound < 1:
		return errors.New("questions per round must be at least 1")
	case r.Categories < 1:
		return errors.New("categories must be at least 1")
	case len(r.Points) != r.TotalRounds:
		return fmt.Errorf("need %d point entries, one per round, have %d", r.TotalRounds, len(r.Points))
	}

	for _, d := range []time.Duration{
		r.CategorySelection, r.QuestionReading, r.LieSubmission, r.OptionSelection,
		r.TruthReveal, r.Scoreboard, r.GameEndedDelay,
	} {
		if d <= 0 {
			return errors.New("phase durations must be positive")
		}
	}

	for i, p := range r.Points {
		if p.Fool <= 0 || p.Truth <= 0 {
			return fmt.Errorf("round %d points must be positive", i+1)
		}

		if i > 0 && (p.Fool <= r.Points[i-1].Fool || p.Truth <= r.Points[i-1].Truth) {
			return fmt.Errorf("round %d points must exceed round %d points", i+1, i)
		}
	}

	return nil
}

func (r Rules) finalRound() int {
	return r.TotalRounds
}

func (r Rules) points(round int) RoundPoints {
	i := min(max(round, 1), len(r.Points)) - 1

	return r.Points[i]
}

func (r Rules) duration(p Phase) time.Duration {
	switch p {
	case PhaseCategorySelection:
		return r.CategorySelection
	case PhaseQuestionReading:
		return r.QuestionReading
	case PhaseLieSubmission:
		return r.LieSubmission
	case PhaseOptionSelection:
		return r.OptionSelection
	case PhaseTruthReveal:
		return r.TruthReveal
	case PhaseScoreboard:
		return r.Scoreboard
	case PhaseGameEnded:
		return r.GameEndedDelay
	}

	return 0
}
