/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package questions loads Lie-Ability question packs and draws questions,
// categories and filler lies from them.
package questions

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MinLies is the smallest filler pool a question may carry.
const MinLies = 3

var ErrInvalidPack = errors.New("invalid question pack")

// Rand is the subset of *math/rand/v2.Rand the draws need.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type Question struct {
	Category string   `yaml:"category" json:"category"`
	Text     string   `yaml:"question" json:"question"`
	Answer   string   `yaml:"answer" json:"answer"`
	Lies     []string `yaml:"lies" json:"lies"`
}

// Pack is an immutable set of questions. It is safe for concurrent use once
// parsed.
type Pack struct {
	Name        string     `yaml:"-" json:"name"`
	EarlyRounds []Question `yaml:"early_rounds" json:"early_rounds"`
	FinalRound  []Question `yaml:"final_round" json:"final_round"`
}

// Parse decodes a pack. YAML is a superset of JSON, so both formats go
// through the same decoder.
func Parse(name string, data []byte) (*Pack, error) {
	p := &Pack{}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPack, name, err)
	}

	p.Name = name

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Pack) Validate() error {
	switch {
	case len(p.EarlyRounds) == 0:
		return fmt.Errorf("%w: %s: no early round questions", ErrInvalidPack, p.Name)
	case len(p.FinalRound) == 0:
		return fmt.Errorf("%w: %s: no final round questions", ErrInvalidPack, p.Name)
	}

	for i, q := range p.EarlyRounds {
		if err := q.validate(); err != nil {
			return fmt.Errorf("%w: %s: early_rounds[%d]: %w", ErrInvalidPack, p.Name, i, err)
		}
	}

	for i, q := range p.FinalRound {
		if err := q.validate(); err != nil {
			return fmt.Errorf("%w: %s: final_round[%d]: %w", ErrInvalidPack, p.Name, i, err)
		}
	}

	return nil
}

func (q Question) validate() error {
	switch {
	case strings.TrimSpace(q.Category) == "":
		return errors.New("missing category")
	case strings.TrimSpace(q.Text) == "":
		return errors.New("missing question")
	case strings.TrimSpace(q.Answer) == "":
		return errors.New("missing answer")
	case len(q.Lies) < MinLies:
		return fmt.Errorf("need at least %d lies, have %d", MinLies, len(q.Lies))
	}

	return nil
}

// Candidates returns up to n unused early round questions, preferring one
// question per category before repeating a category.
func (p *Pack) Candidates(exclude map[string]bool, n int, rng Rand) []Question {
	available := unused(p.EarlyRounds, exclude)

	rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	selected := make([]Question, 0, n)
	taken := make([]bool, len(available))
	categories := make(map[string]bool)

	for i, q := range available {
		if len(selected) == n {
			break
		}

		if categories[q.Category] {
			continue
		}

		categories[q.Category] = true
		taken[i] = true
		selected = append(selected, q)
	}

	for i, q := range available {
		if len(selected) == n {
			break
		}

		if !taken[i] {
			selected = append(selected, q)
		}
	}

	return selected
}

// FinalQuestion draws an unused final round question. When every final
// question has been used it draws from the whole final pool.
func (p *Pack) FinalQuestion(exclude map[string]bool, rng Rand) (Question, bool) {
	pool := unused(p.FinalRound, exclude)
	if len(pool) == 0 {
		pool = p.FinalRound
	}

	if len(pool) == 0 {
		return Question{}, false
	}

	return pool[rng.IntN(len(pool))], true
}

// FillerLie draws one of q's prepared lies that exclude does not reject.
func (p *Pack) FillerLie(q Question, exclude func(lie string) bool, rng Rand) (string, bool) {
	pool := make([]string, 0, len(q.Lies))

	for _, lie := range q.Lies {
		if exclude == nil || !exclude(lie) {
			pool = append(pool, lie)
		}
	}

	if len(pool) == 0 {
		return "", false
	}

	return pool[rng.IntN(len(pool))], true
}

func unused(questions []Question, exclude map[string]bool) []Question {
	out := make([]Question, 0, len(questions))

	for _, q := range questions {
		if !exclude[q.Text] {
			out = append(out, q)
		}
	}

	return out
}
