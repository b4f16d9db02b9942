package lieability

import (
	"maps"
	"slices"

	"github.com/Seednode/lieability/games/questions"
)

type RevealPlayer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Avatar        Avatar `json:"avatar"`
	LikesReceived int    `json:"likesReceived"`
}

type RevealLie struct {
	OptionID string         `json:"optionId"`
	Text     string         `json:"text"`
	Authors  []RevealPlayer `json:"authors"`
	Voters   []RevealPlayer `json:"voters"`
	Votes    int            `json:"votes"`
	Points   int            `json:"points"`
}

// Reveal is shown after voting. Lies run from fewest to most votes so the
// best lie lands last.
type Reveal struct {
	Lies        []RevealLie    `json:"lies"`
	TruthID     string         `json:"truthOptionId"`
	Answer      string         `json:"answer"`
	TruthVoters []RevealPlayer `json:"truthVoters"`
	TruthPoints int            `json:"truthPoints"`
	Category    string         `json:"category"`
	Question    string         `json:"question"`
	Round       int            `json:"round"`
	Number      int            `json:"questionNumber"`
}

func revealPlayers(r *roster, ids []string) []RevealPlayer {
	out := make([]RevealPlayer, 0, len(ids))

	for _, id := range ids {
		p, ok := r.get(id)
		if !ok {
			continue
		}

		out = append(out, RevealPlayer{
			ID:            p.id,
			Name:          p.name,
			Avatar:        p.avatar,
			LikesReceived: r.likesFor(p.id),
		})
	}

	return out
}

// compileReveal covers only lies a participant wrote. Equal vote counts are
// shuffled so ties do not leak submission order.
func compileReveal(r *roster, q questions.Question, opts []Option, truth int, votes tally, pts RoundPoints, rng Rand) Reveal {
	groups := make(map[int][]RevealLie)

	for i, opt := range opts {
		if opt.Kind != OptionLie || len(opt.Authors) == 0 {
			continue
		}

		n := len(votes[i])

		groups[n] = append(groups[n], RevealLie{
			OptionID: opt.ID,
			Text:     opt.Text,
			Authors:  revealPlayers(r, opt.Authors),
			Voters:   revealPlayers(r, votes[i]),
			Votes:    n,
			Points:   n * pts.Fool,
		})
	}

	lies := make([]RevealLie, 0, len(opts))

	for _, n := range slices.Sorted(maps.Keys(groups)) {
		group := groups[n]

		rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})

		lies = append(lies, group...)
	}

	rv := Reveal{
		Lies:        lies,
		Answer:      q.Answer,
		TruthPoints: pts.Truth,
		Category:    q.Category,
		Question:    q.Text,
	}

	if truth >= 0 && truth < len(opts) {
		rv.TruthID = opts[truth].ID
		rv.TruthVoters = revealPlayers(r, votes[truth])
	}

	return rv
}
