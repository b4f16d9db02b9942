package lieability

// Phase is the session's position in the game loop. Each timed phase arms
// a timer under its own name.
type Phase string

const (
	PhaseLobby             Phase = "lobby"
	PhaseCategorySelection Phase = "category_selection"
	PhaseQuestionReading   Phase = "question_reading"
	PhaseLieSubmission     Phase = "lie_submission"
	PhaseOptionSelection   Phase = "option_selection"
	PhaseTruthReveal       Phase = "truth_reveal"
	PhaseScoreboard        Phase = "scoreboard"
	PhaseGameEnded         Phase = "game_ended"
)

func (p Phase) String() string {
	return string(p)
}

// ticking reports whether the phase broadcasts per-second timer updates.
func (p Phase) ticking() bool {
	switch p {
	case PhaseCategorySelection, PhaseQuestionReading, PhaseLieSubmission, PhaseOptionSelection:
		return true
	}

	return false
}

// inQuestion reports whether a question is on the table.
func (p Phase) inQuestion() bool {
	switch p {
	case PhaseQuestionReading, PhaseLieSubmission, PhaseOptionSelection, PhaseTruthReveal, PhaseScoreboard:
		return true
	}

	return false
}
