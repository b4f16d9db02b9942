package lieability

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

const (
	maxLieLength = 100
	mysteryLie   = "Mystery answer"
)

type OptionKind string

const (
	OptionLie   OptionKind = "lie"
	OptionTruth OptionKind = "truth"
)

// Option is one answer on the board. Filler lies have no authors.
type Option struct {
	ID      string     `json:"id"`
	Text    string     `json:"text"`
	Kind    OptionKind `json:"kind"`
	Authors []string   `json:"authors,omitempty"`
}

func (o Option) authoredBy(id string) bool {
	for _, a := range o.Authors {
		if a == id {
			return true
		}
	}

	return false
}

func (o Option) view() OptionView {
	return OptionView{ID: o.ID, Text: o.Text}
}

// normalize folds case and collapses whitespace so that "Paris", " paris "
// and "PARIS" compare equal.
func normalize(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

type authoredLie struct {
	author string
	text   string
}

// fillerDraw returns a prepared lie whose normalized text is not in taken.
type fillerDraw func(taken map[string]bool) (string, bool)

// compileOptions builds the shuffled board for a question: submitted lies
// merged by normalized text, padded with filler lies up to target lie
// options, plus the truth. It returns the board and the truth's index.
func compileOptions(lies []authoredLie, answer string, target int, draw fillerDraw, rng Rand) ([]Option, int) {
	taken := map[string]bool{normalize(answer): true}
	opts := make([]Option, 0, max(len(lies), target)+1)
	byText := make(map[string]int)

	for _, l := range lies {
		key := normalize(l.text)

		if i, ok := byText[key]; ok {
			opts[i].Authors = append(opts[i].Authors, l.author)

			continue
		}

		byText[key] = len(opts)
		taken[key] = true
		opts = append(opts, Option{Text: l.text, Kind: OptionLie, Authors: []string{l.author}})
	}

	for len(opts) < target {
		text, ok := draw(taken)
		if !ok {
			break
		}

		key := normalize(text)
		if taken[key] {
			break
		}

		taken[key] = true
		opts = append(opts, Option{Text: text, Kind: OptionLie})
	}

	opts = append(opts, Option{Text: answer, Kind: OptionTruth})

	rng.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})

	ids := make(map[string]bool, len(opts))
	truth := -1

	for i := range opts {
		opts[i].ID = newOptionID(rng, ids)

		if opts[i].Kind == OptionTruth {
			truth = i
		}
	}

	return opts, truth
}

// mysteryFiller produces a placeholder lie when a question's prepared lies
// are exhausted.
func mysteryFiller(taken func(key string) bool) string {
	text := mysteryLie

	for n := 2; taken(normalize(text)); n++ {
		text = mysteryLie + " " + strconv.Itoa(n)
	}

	return text
}
