package lieability

import (
	"math"
	"slices"
)

// State is the public game state sent with every game_state_update.
// It never carries the answer or who wrote which lie.
type State struct {
	GameID            string        `json:"gameId"`
	Phase             Phase         `json:"phase"`
	Players           []Player      `json:"players"`
	Round             int           `json:"round"`
	Question          int           `json:"questionNumber"`
	TotalRounds       int           `json:"totalRounds"`
	QuestionsPerRound int           `json:"questionsPerRound"`
	IsFinalRound      bool          `json:"isFinalRound"`
	CategorySelector  string        `json:"categorySelector,omitempty"`
	CurrentQuestion   *QuestionInfo `json:"currentQuestion,omitempty"`
	TimeRemaining     int           `json:"timeRemaining"`
	MinPlayers        int           `json:"minPlayers"`
	MaxPlayers        int           `json:"maxPlayers"`
	QuestionPack      string        `json:"questionPack"`
	QuestionPacks     []string      `json:"questionPacks"`
}

// PlayerView is one participant's slice of the current step. The observer
// view has no PlayerID and shows every option.
type PlayerView struct {
	Phase             Phase            `json:"phase"`
	PlayerID          string           `json:"playerId,omitempty"`
	IsSelector        bool             `json:"isSelector"`
	SelectorName      string           `json:"selectorName,omitempty"`
	Categories        []CategoryChoice `json:"categories,omitempty"`
	Question          *QuestionInfo    `json:"question,omitempty"`
	HasSubmittedLie   bool             `json:"hasSubmittedLie"`
	HasSelectedOption bool             `json:"hasSelectedOption"`
	Options           []OptionView     `json:"options,omitempty"`
	Reveal            *Reveal          `json:"reveal,omitempty"`
	Connected         int              `json:"connectedPlayers"`
	Submitted         int              `json:"submittedLies"`
	Selected          int              `json:"selectedOptions"`
	TimeRemaining     int              `json:"timeRemaining"`
}

func (s *Session) secondsRemaining() int {
	return int(math.Ceil(s.timers.Remaining(string(s.phase)).Seconds()))
}

func (s *Session) state() State {
	st := State{
		GameID:            s.id,
		Phase:             s.phase,
		Players:           s.players.players(),
		Round:             s.round,
		Question:          s.number,
		TotalRounds:       s.rules.TotalRounds,
		QuestionsPerRound: s.rules.QuestionsPerRound,
		IsFinalRound:      s.phase != PhaseLobby && s.round >= s.rules.finalRound(),
		CategorySelector:  s.selector,
		TimeRemaining:     s.secondsRemaining(),
		MinPlayers:        s.rules.MinPlayers,
		MaxPlayers:        s.rules.MaxPlayers,
		QuestionPack:      s.pack,
		QuestionPacks:     slices.Clone(s.packNames),
	}

	if s.phase.inQuestion() && s.question != nil {
		info := s.questionInfo()
		st.CurrentQuestion = &info
	}

	return st
}

func (s *Session) view(p *participant) PlayerView {
	v := PlayerView{
		Phase:         s.phase,
		TimeRemaining: s.secondsRemaining(),
	}

	for _, q := range s.players.connected() {
		v.Connected++

		if q.submitted {
			v.Submitted++
		}

		if q.selected {
			v.Selected++
		}
	}

	if sel, ok := s.players.get(s.selector); ok {
		v.SelectorName = sel.name
	}

	if p != nil {
		v.PlayerID = p.id
		v.IsSelector = p.id == s.selector
		v.HasSubmittedLie = p.submitted
		v.HasSelectedOption = p.selected
	}

	if s.phase.inQuestion() && s.question != nil {
		info := s.questionInfo()
		v.Question = &info
	}

	switch s.phase {
	case PhaseCategorySelection:
		if v.IsSelector {
			v.Categories = s.categoryChoices()
		}
	case PhaseOptionSelection:
		for _, o := range s.options {
			if p == nil || !o.authoredBy(p.id) {
				v.Options = append(v.Options, o.view())
			}
		}
	case PhaseTruthReveal:
		v.Reveal = s.reveal
	}

	return v
}

// publish sends the public state to everyone, each connected participant
// their own view, and the observer view to everyone.
func (s *Session) publish() {
	s.out.Broadcast(Event{Type: EventGameStateUpdate, Data: s.state()})

	for _, p := range s.players.connected() {
		s.out.SendTo(p.id, Event{Type: EventSubStepInfo, Data: s.view(p)})
	}

	s.out.Broadcast(Event{Type: EventHostSubStepInfo, Data: s.view(nil)})
}
