package lieability

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const (
	minNameLength = 2
	maxNameLength = 20
)

var validName = regexp.MustCompile(`^[\p{L}\p{N} ._\-']+$`)

var avatarEmojis = []string{
	"😀", "😃", "😄", "😁", "😆", "🥰", "😍", "🤩", "😎", "🤓",
	"🤔", "😏", "😊", "☺️", "😌", "😉", "🤭", "😋", "😛", "😜",
	"🤪", "😇", "🥳", "🤠", "🤡", "🤖", "👻", "🎃", "🔥", "⭐",
	"🌟", "✨", "💫", "🌈", "🦄", "🐱", "🐶", "🐸", "🐵", "🦊",
}

var avatarColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57",
	"#FF9FF3", "#54A0FF", "#5F27CD", "#00D2D3", "#FF9F43",
	"#10AC84", "#EE5A24", "#0984E3", "#6C5CE7", "#A3CB38",
	"#FD79A8", "#E17055", "#74B9FF", "#81ECEC", "#FAB1A0",
}

var validColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type Avatar struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

func randomAvatar(rng Rand) Avatar {
	return Avatar{
		Emoji: avatarEmojis[rng.IntN(len(avatarEmojis))],
		Color: avatarColors[rng.IntN(len(avatarColors))],
	}
}

func (a Avatar) validate() error {
	if a.Emoji == "" || utf8.RuneCountInString(a.Emoji) > 8 {
		return fmt.Errorf("%w: avatar emoji", ErrInvalidInput)
	}

	if !validColor.MatchString(a.Color) {
		return fmt.Errorf("%w: avatar color must look like #RRGGBB", ErrInvalidInput)
	}

	return nil
}

// cleanName trims and checks a display name.
func cleanName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")

	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	case n < minNameLength:
		return "", fmt.Errorf("%w: name must be at least %d characters", ErrInvalidInput, minNameLength)
	case n > maxNameLength:
		return "", fmt.Errorf("%w: name must be %d characters or less", ErrInvalidInput, maxNameLength)
	case !validName.MatchString(name):
		return "", fmt.Errorf("%w: name contains invalid characters", ErrInvalidInput)
	}

	return name, nil
}

// Stats accumulate over one game.
type Stats struct {
	LiesSubmitted  []string `json:"liesSubmitted"`
	CorrectGuesses int      `json:"correctGuesses"`
	PlayersFooled  int      `json:"playersFooled"`
	LikesReceived  int      `json:"likesReceived"`
}

// Player is the public view of a participant.
type Player struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Status            Status `json:"status"`
	Points            int    `json:"points"`
	Avatar            Avatar `json:"avatar"`
	HasSubmittedLie   bool   `json:"hasSubmittedLie"`
	HasSelectedOption bool   `json:"hasSelectedOption"`
	LikesReceived     int    `json:"likesReceived"`
}

// ScoreEntry is one row of a ranking.
type ScoreEntry struct {
	Rank          int    `json:"rank"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
	Avatar        Avatar `json:"avatar"`
	LastLie       string `json:"lastLie,omitempty"`
	PlayersFooled int    `json:"playersFooled"`
	LikesReceived int    `json:"likesReceived"`
	Stats         Stats  `json:"stats"`
}

type participant struct {
	id     string
	name   string
	avatar Avatar
	status Status
	points int
	seq    int

	lie        string
	guess      int
	likes      map[string]bool
	submitted  bool
	selected   bool
	fooledLast int

	stats Stats
}

func (p *participant) connected() bool {
	return p.status == StatusConnected
}

func (p *participant) submitLie(text string) {
	if p.submitted && len(p.stats.LiesSubmitted) > 0 {
		p.stats.LiesSubmitted[len(p.stats.LiesSubmitted)-1] = text
	} else {
		p.stats.LiesSubmitted = append(p.stats.LiesSubmitted, text)
	}

	p.lie = text
	p.submitted = true
}

func (p *participant) selectOption(index int) {
	p.guess = index
	p.selected = true
}

func (p *participant) resetQuestion() {
	p.lie = ""
	p.guess = -1
	p.likes = make(map[string]bool)
	p.submitted = false
	p.selected = false
	p.fooledLast = 0
}

func (p *participant) resetGame() {
	p.resetQuestion()
	p.points = 0
	p.stats = Stats{}
}

// roster keeps participants in join order.
type roster struct {
	byID    map[string]*participant
	order   []*participant
	nextSeq int
}

func newRoster() *roster {
	return &roster{byID: make(map[string]*participant)}
}

func (r *roster) add(p *participant) {
	r.nextSeq++
	p.seq = r.nextSeq
	p.resetQuestion()

	r.byID[p.id] = p
	r.order = append(r.order, p)
}

func (r *roster) remove(id string) (*participant, bool) {
	p, ok := r.byID[id]
	if !ok {
		return nil, false
	}

	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(q *participant) bool { return q.id == id })

	return p, true
}

func (r *roster) get(id string) (*participant, bool) {
	p, ok := r.byID[id]

	return p, ok
}

func (r *roster) nameTaken(name, except string) bool {
	key := normalize(name)

	for _, p := range r.order {
		if p.id != except && normalize(p.name) == key {
			return true
		}
	}

	return false
}

func (r *roster) count() int {
	return len(r.order)
}

func (r *roster) all() []*participant {
	return r.order
}

func (r *roster) connected() []*participant {
	out := make([]*participant, 0, len(r.order))

	for _, p := range r.order {
		if p.connected() {
			out = append(out, p)
		}
	}

	return out
}

// quorum reports whether every connected participant has acted. A room with
// nobody connected never has quorum.
func (r *roster) quorum(acted func(*participant) bool) bool {
	n := 0

	for _, p := range r.order {
		if !p.connected() {
			continue
		}

		if !acted(p) {
			return false
		}

		n++
	}

	return n > 0
}

// likesFor counts distinct participants who liked id this question.
func (r *roster) likesFor(id string) int {
	n := 0

	for _, p := range r.order {
		if p.likes[id] {
			n++
		}
	}

	return n
}

func (r *roster) resetQuestion() {
	for _, p := range r.order {
		p.resetQuestion()
	}
}

func (r *roster) resetGame() {
	for _, p := range r.order {
		p.resetGame()
	}
}

func (r *roster) public(p *participant) Player {
	return Player{
		ID:                p.id,
		Name:              p.name,
		Status:            p.status,
		Points:            p.points,
		Avatar:            p.avatar,
		HasSubmittedLie:   p.submitted,
		HasSelectedOption: p.selected,
		LikesReceived:     r.likesFor(p.id),
	}
}

func (r *roster) players() []Player {
	out := make([]Player, 0, len(r.order))

	for _, p := range r.order {
		out = append(out, r.public(p))
	}

	return out
}

// ranking orders participants by points, ties broken by join order.
func (r *roster) ranking() []ScoreEntry {
	sorted := slices.Clone(r.order)

	slices.SortStableFunc(sorted, func(a, b *participant) int {
		if c := cmp.Compare(b.points, a.points); c != 0 {
			return c
		}

		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]ScoreEntry, 0, len(sorted))

	for i, p := range sorted {
		out = append(out, ScoreEntry{
			Rank:          i + 1,
			ID:            p.id,
			Name:          p.name,
			Points:        p.points,
			Avatar:        p.avatar,
			LastLie:       p.lie,
			PlayersFooled: p.fooledLast,
			LikesReceived: r.likesFor(p.id),
			Stats: Stats{
				LiesSubmitted:  slices.Clone(p.stats.LiesSubmitted),
				CorrectGuesses: p.stats.CorrectGuesses,
				PlayersFooled:  p.stats.PlayersFooled,
				LikesReceived:  p.stats.LikesReceived,
			},
		})
	}

	return out
}
