package lieability

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Seednode/lieability/games/questions"
)

func (s *Session) source() QuestionSource {
	return s.packs[s.pack]
}

func (s *Session) event(lvl zerolog.Level) *zerolog.Event {
	return s.log.WithLevel(lvl).
		Str("phase", s.phase.String()).
		Int("round", s.round).
		Int("question", s.number)
}

// enter moves to phase p. The outgoing phase's timer is cancelled, and the
// bumped sequence makes any expiry already queued for it a no-op. Work that
// can fail runs before enter, so a fault leaves the session in the phase it
// last broadcast with that phase's timer still armed.
func (s *Session) enter(p Phase) {
	s.timers.Cancel(string(s.phase))

	s.phase = p
	s.seq++

	s.event(zerolog.DebugLevel).Msg("Entered phase")
}

// arm starts the current phase's timer. When it expires next runs on the
// session goroutine, unless the session has moved on in the meantime.
func (s *Session) arm(next func()) {
	phase, seq := s.phase, s.seq

	var tick func(int)
	if phase.ticking() {
		out := s.out
		tick = func(left int) {
			out.Broadcast(Event{
				Type: EventTimerUpdate,
				Data: TimerPayload{Type: phase, SecondsRemaining: left},
			})
		}
	}

	s.timers.Start(string(phase), s.rules.duration(phase), func() {
		s.post(func() {
			if s.phase != phase || s.seq != seq {
				s.log.Debug().Str("timer", string(phase)).Msg("Ignoring stale timer")

				return
			}

			s.event(zerolog.DebugLevel).Msg("Phase timer expired")

			next()
		})
	}, tick)
}

func (s *Session) timeLimit() int {
	return int(s.rules.duration(s.phase).Seconds())
}

func (s *Session) join(name string) (Player, error) {
	if s.source() == nil {
		return Player{}, fmt.Errorf("%w: no question pack loaded", ErrNotReady)
	}

	if s.phase != PhaseLobby {
		return Player{}, fmt.Errorf("%w: game already in progress", ErrPhaseMismatch)
	}

	name, err := cleanName(name)
	if err != nil {
		return Player{}, err
	}

	if s.players.count() >= s.rules.MaxPlayers {
		return Player{}, fmt.Errorf("%w: maximum of %d players", ErrCapacityExceeded, s.rules.MaxPlayers)
	}

	if s.players.nameTaken(name, "") {
		return Player{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	p := &participant{
		id:     uuid.NewString(),
		name:   name,
		avatar: randomAvatar(s.rng),
		status: StatusConnected,
	}
	s.players.add(p)

	s.log.Info().Str("player_id", p.id).Str("name", p.name).Msg("Player joined")

	pub := s.players.public(p)

	s.out.Broadcast(Event{
		Type: EventPlayerJoined,
		Data: PlayerJoinedPayload{Player: pub, TotalPlayers: s.players.count()},
	})
	s.publish()

	return pub, nil
}

func (s *Session) leave(id string) error {
	p, ok := s.players.remove(id)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	s.log.Info().Str("player_id", p.id).Str("name", p.name).Msg("Player left")

	s.out.Broadcast(Event{
		Type: EventPlayerLeft,
		Data: PlayerLeftPayload{PlayerID: p.id, PlayerName: p.name, TotalPlayers: s.players.count()},
	})
	s.publish()

	s.rosterChanged(p.id)

	return nil
}

func (s *Session) disconnect(id string) bool {
	p, ok := s.players.get(id)
	if !ok {
		return false
	}

	if !p.connected() {
		return true
	}

	p.status = StatusDisconnected

	s.log.Info().Str("player_id", p.id).Str("name", p.name).Msg("Player disconnected")

	s.publish()
	s.rosterChanged(p.id)

	return true
}

func (s *Session) reconnect(id string) bool {
	p, ok := s.players.get(id)
	if !ok {
		return false
	}

	if p.connected() {
		return true
	}

	p.status = StatusConnected

	s.log.Info().Str("player_id", p.id).Str("name", p.name).Msg("Player reconnected")

	s.out.Broadcast(Event{
		Type: EventPlayerReconnected,
		Data: PlayerReconnectedPayload{PlayerID: p.id, PlayerName: p.name},
	})
	s.publish()

	return true
}

// rosterChanged re-evaluates the current phase after someone disconnected
// or left.
func (s *Session) rosterChanged(id string) {
	switch s.phase {
	case PhaseCategorySelection:
		if s.selector == id {
			s.log.Info().Str("player_id", id).Msg("Selector gone, picking a category for them")
			s.autoSelectCategory()
		}
	case PhaseLieSubmission:
		s.checkLies()
	case PhaseOptionSelection:
		s.checkVotes()
	}
}

func (s *Session) start() error {
	if s.phase != PhaseLobby {
		return fmt.Errorf("%w: game already started", ErrPhaseMismatch)
	}

	if s.source() == nil {
		return fmt.Errorf("%w: no question pack loaded", ErrNotReady)
	}

	if n := len(s.players.connected()); n < s.rules.MinPlayers {
		return fmt.Errorf("%w: need at least %d players, have %d", ErrNotReady, s.rules.MinPlayers, n)
	}

	s.round, s.number = 1, 1
	clear(s.used)
	s.players.resetGame()

	s.log.Info().Int("players", s.players.count()).Str("pack", s.pack).Msg("Game started")

	s.out.Broadcast(Event{
		Type: EventGameStarted,
		Data: GameStartedPayload{
			TotalRounds:       s.rules.TotalRounds,
			QuestionsPerRound: s.rules.QuestionsPerRound,
			TotalPlayers:      s.players.count(),
		},
	})

	s.beginQuestion()

	return nil
}

func (s *Session) resetQuestion() {
	s.question = nil
	s.categories = nil
	s.selector = ""
	s.options = nil
	s.truth = -1
	s.reveal = nil
	clear(s.fillers)
	s.players.resetQuestion()
}

// beginQuestion opens the next question: a category pick in normal rounds,
// a drawn question in the final round.
func (s *Session) beginQuestion() {
	s.resetQuestion()

	src := s.source()

	if s.round >= s.rules.finalRound() {
		q, ok := src.FinalQuestion(s.used, s.rng)
		if !ok {
			s.event(zerolog.ErrorLevel).Str("pack", s.pack).Msg("Question pack has no final round question")
			s.endGame()

			return
		}

		s.useQuestion(q)
		s.startQuestionReading()

		return
	}

	connected := s.players.connected()
	if len(connected) == 0 {
		s.event(zerolog.InfoLevel).Msg("Nobody connected, returning to lobby")
		s.returnToLobby()

		return
	}

	s.categories = src.Candidates(s.used, s.rules.Categories, s.rng)
	if len(s.categories) == 0 {
		s.event(zerolog.WarnLevel).Str("pack", s.pack).Msg("Question pack exhausted, ending game")
		s.endGame()

		return
	}

	selector := connected[s.rng.IntN(len(connected))]
	s.selector = selector.id

	s.enter(PhaseCategorySelection)

	payload := CategorySelectionPayload{
		SelectorID:   selector.id,
		SelectorName: selector.name,
		TimeLimit:    s.timeLimit(),
		Round:        s.round,
		Question:     s.number,
	}
	s.out.Broadcast(Event{Type: EventCategorySelectionStart, Data: payload})

	payload.Categories = s.categoryChoices()
	s.out.SendTo(selector.id, Event{Type: EventCategorySelectionStart, Data: payload})

	s.arm(s.autoSelectCategory)
	s.publish()
}

func (s *Session) categoryChoices() []CategoryChoice {
	out := make([]CategoryChoice, 0, len(s.categories))

	for i, q := range s.categories {
		out = append(out, CategoryChoice{ID: i, Category: q.Category})
	}

	return out
}

func (s *Session) chooseCategory(id string, categoryID int) error {
	if s.phase != PhaseCategorySelection {
		return fmt.Errorf("%w: not choosing a category", ErrPhaseMismatch)
	}

	if _, ok := s.players.get(id); !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	if id != s.selector {
		return fmt.Errorf("%w: only the selector picks the category", ErrUnauthorized)
	}

	if categoryID < 0 || categoryID >= len(s.categories) {
		return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
	}

	s.event(zerolog.DebugLevel).
		Str("player_id", id).
		Str("category", s.categories[categoryID].Category).
		Msg("Category chosen")

	s.useQuestion(s.categories[categoryID])
	s.startQuestionReading()

	return nil
}

func (s *Session) autoSelectCategory() {
	if s.phase != PhaseCategorySelection || len(s.categories) == 0 {
		return
	}

	q := s.categories[s.rng.IntN(len(s.categories))]

	s.event(zerolog.DebugLevel).Str("category", q.Category).Msg("Category picked automatically")

	s.useQuestion(q)
	s.startQuestionReading()
}

func (s *Session) useQuestion(q questions.Question) {
	s.question = &q
	s.used[q.Text] = true
}

func (s *Session) questionInfo() QuestionInfo {
	if s.question == nil {
		return QuestionInfo{}
	}

	return QuestionInfo{Category: s.question.Category, Question: s.question.Text}
}

func (s *Session) startQuestionReading() {
	s.enter(PhaseQuestionReading)

	s.out.Broadcast(Event{
		Type: EventQuestionReadingStart,
		Data: QuestionReadingPayload{
			QuestionInfo: s.questionInfo(),
			TimeLimit:    s.timeLimit(),
			Round:        s.round,
			Question:     s.number,
			IsFinal:      s.round >= s.rules.finalRound(),
		},
	})

	s.arm(s.startLieSubmission)
	s.publish()
}

func (s *Session) startLieSubmission() {
	s.enter(PhaseLieSubmission)

	s.out.Broadcast(Event{
		Type: EventLieSubmissionStart,
		Data: LieSubmissionPayload{QuestionInfo: s.questionInfo(), TimeLimit: s.timeLimit()},
	})

	s.arm(s.autoCompleteLies)
	s.publish()
}

func (s *Session) submitLie(id, text string) error {
	if s.phase != PhaseLieSubmission {
		return fmt.Errorf("%w: not accepting lies", ErrPhaseMismatch)
	}

	p, ok := s.players.get(id)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	text = strings.TrimSpace(text)

	switch {
	case text == "":
		return fmt.Errorf("%w: lie cannot be empty", ErrInvalidInput)
	case utf8.RuneCountInString(text) > maxLieLength:
		return fmt.Errorf("%w: lie must be %d characters or less", ErrInvalidInput, maxLieLength)
	case normalize(text) == normalize(s.question.Answer):
		return fmt.Errorf("%w: that's the truth, write a lie", ErrInvalidInput)
	}

	p.submitLie(text)

	s.log.Debug().Str("player_id", p.id).Msg("Lie submitted")

	s.publish()
	s.checkLies()

	return nil
}

func (s *Session) submitAutoLie(id string) (string, error) {
	if s.phase != PhaseLieSubmission {
		return "", fmt.Errorf("%w: not accepting lies", ErrPhaseMismatch)
	}

	p, ok := s.players.get(id)
	if !ok {
		return "", fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	text := s.drawFiller(s.takenLies())
	p.submitLie(text)

	s.log.Debug().Str("player_id", p.id).Msg("Prepared lie submitted on request")

	s.publish()
	s.checkLies()

	return text, nil
}

// takenLies holds the normalized answer and every lie submitted so far.
func (s *Session) takenLies() map[string]bool {
	taken := map[string]bool{normalize(s.question.Answer): true}

	for _, p := range s.players.all() {
		if p.submitted {
			taken[normalize(p.lie)] = true
		}
	}

	return taken
}

// drawFiller picks a prepared lie that is not taken and was not drawn
// before for this question, falling back to a numbered placeholder.
func (s *Session) drawFiller(taken map[string]bool) string {
	blocked := func(key string) bool {
		return taken[key] || s.fillers[key]
	}

	text, ok := s.source().FillerLie(*s.question, func(lie string) bool {
		return blocked(normalize(lie))
	}, s.rng)
	if !ok {
		text = mysteryFiller(blocked)
	}

	s.fillers[normalize(text)] = true

	return text
}

func (s *Session) checkLies() {
	if s.phase != PhaseLieSubmission {
		return
	}

	if s.players.quorum(func(p *participant) bool { return p.submitted }) {
		s.startOptionSelection()
	}
}

func (s *Session) autoCompleteLies() {
	for _, p := range s.players.connected() {
		if p.submitted {
			continue
		}

		p.submitLie(s.drawFiller(s.takenLies()))

		s.log.Debug().Str("player_id", p.id).Msg("Lie filled in on timeout")
	}

	s.startOptionSelection()
}

func (s *Session) startOptionSelection() {
	var lies []authoredLie
	for _, p := range s.players.all() {
		if p.submitted {
			lies = append(lies, authoredLie{author: p.id, text: p.lie})
		}
	}

	pad := func(taken map[string]bool) (string, bool) {
		text, ok := s.source().FillerLie(*s.question, func(lie string) bool {
			key := normalize(lie)

			return taken[key] || s.fillers[key]
		}, s.rng)
		if ok {
			s.fillers[normalize(text)] = true
		}

		return text, ok
	}

	opts, truth := compileOptions(lies, s.question.Answer, len(s.players.connected()), pad, s.rng)

	s.enter(PhaseOptionSelection)
	s.options, s.truth = opts, truth

	s.event(zerolog.DebugLevel).Int("options", len(s.options)).Msg("Options compiled")

	views := make([]OptionView, 0, len(s.options))
	for _, o := range s.options {
		views = append(views, o.view())
	}

	s.out.Broadcast(Event{
		Type: EventOptionSelectionStart,
		Data: OptionSelectionPayload{
			QuestionInfo: s.questionInfo(),
			Options:      views,
			TimeLimit:    s.timeLimit(),
		},
	})

	s.arm(s.autoCompleteVotes)
	s.publish()
}

func (s *Session) optionIndex(optionID string) int {
	for i, o := range s.options {
		if o.ID == optionID {
			return i
		}
	}

	return -1
}

func (s *Session) castVote(id, optionID string) error {
	if s.phase != PhaseOptionSelection {
		return fmt.Errorf("%w: not accepting votes", ErrPhaseMismatch)
	}

	p, ok := s.players.get(id)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	i := s.optionIndex(optionID)
	if i < 0 {
		return fmt.Errorf("%w: option %s", ErrNotFound, optionID)
	}

	if s.options[i].authoredBy(id) {
		return fmt.Errorf("%w: you can't vote for your own lie", ErrUnauthorized)
	}

	p.selectOption(i)

	s.log.Debug().Str("player_id", p.id).Msg("Vote cast")

	s.publish()
	s.checkVotes()

	return nil
}

func (s *Session) checkVotes() {
	if s.phase != PhaseOptionSelection {
		return
	}

	if s.players.quorum(func(p *participant) bool { return p.selected }) {
		s.startTruthReveal()
	}
}

func (s *Session) autoCompleteVotes() {
	for _, p := range s.players.connected() {
		if p.selected {
			continue
		}

		choices := make([]int, 0, len(s.options))
		for i, o := range s.options {
			if !o.authoredBy(p.id) {
				choices = append(choices, i)
			}
		}

		if len(choices) == 0 {
			continue
		}

		p.selectOption(choices[s.rng.IntN(len(choices))])

		s.log.Debug().Str("player_id", p.id).Msg("Vote filled in on timeout")
	}

	s.startTruthReveal()
}

func (s *Session) like(id, targetID string) error {
	if s.phase != PhaseOptionSelection && s.phase != PhaseTruthReveal {
		return fmt.Errorf("%w: likes are closed", ErrPhaseMismatch)
	}

	p, ok := s.players.get(id)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	target, ok := s.players.get(targetID)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, targetID)
	}

	if p.id == target.id {
		return fmt.Errorf("%w: you can't like your own lie", ErrUnauthorized)
	}

	if p.likes[target.id] {
		return nil
	}

	p.likes[target.id] = true
	target.stats.LikesReceived++

	s.publish()

	return nil
}

func (s *Session) startTruthReveal() {
	pts := s.rules.points(s.round)
	votes := countVotes(s.players, s.options)

	rv := compileReveal(s.players, *s.question, s.options, s.truth, votes, pts, s.rng)
	rv.Round, rv.Number = s.round, s.number

	s.enter(PhaseTruthReveal)

	scoreQuestion(s.players, s.options, votes, pts)
	s.reveal = &rv

	s.event(zerolog.InfoLevel).
		Int("truth_voters", len(rv.TruthVoters)).
		Int("lies", len(rv.Lies)).
		Msg("Question scored")

	s.out.Broadcast(Event{Type: EventTruthRevealStart, Data: rv})

	s.arm(s.showScoreboard)
	s.publish()
}

func (s *Session) isGameEnd() bool {
	return s.round >= s.rules.finalRound()
}

func (s *Session) showScoreboard() {
	s.enter(PhaseScoreboard)

	s.out.Broadcast(Event{
		Type: EventScoreboardUpdate,
		Data: ScoreboardPayload{
			Players:   s.players.ranking(),
			Round:     s.round,
			Question:  s.number,
			IsGameEnd: s.isGameEnd(),
		},
	})

	s.arm(s.advance)
	s.publish()
}

func (s *Session) advance() {
	if s.isGameEnd() {
		s.endGame()

		return
	}

	if s.number < s.rules.QuestionsPerRound {
		s.number++
	} else {
		s.round++
		s.number = 1
	}

	s.beginQuestion()
}

func (s *Session) endGame() {
	s.timers.CancelAll()
	s.enter(PhaseGameEnded)

	ranking := s.players.ranking()

	payload := GameEndedPayload{FinalScores: ranking}
	if len(ranking) > 0 {
		payload.Winner = &ranking[0]

		s.log.Info().Str("winner", ranking[0].Name).Int("points", ranking[0].Points).Msg("Game ended")
	}

	s.out.Broadcast(Event{Type: EventGameEnded, Data: payload})

	s.arm(s.returnToLobby)
	s.publish()
}

func (s *Session) returnToLobby() {
	s.timers.CancelAll()
	s.enter(PhaseLobby)

	s.round, s.number = 0, 0
	clear(s.used)
	s.resetQuestion()
	s.players.resetGame()

	s.publish()
}

func (s *Session) updateAvatar(id string, avatar Avatar) error {
	if s.phase != PhaseLobby {
		return fmt.Errorf("%w: avatars can only change in the lobby", ErrPhaseMismatch)
	}

	p, ok := s.players.get(id)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	if err := avatar.validate(); err != nil {
		return err
	}

	p.avatar = avatar

	s.out.Broadcast(Event{
		Type: EventPlayerAvatarUpdated,
		Data: AvatarPayload{PlayerID: p.id, Avatar: avatar},
	})
	s.publish()

	return nil
}

func (s *Session) rename(id, name string) error {
	if s.phase != PhaseLobby {
		return fmt.Errorf("%w: names can only change in the lobby", ErrPhaseMismatch)
	}

	p, ok := s.players.get(id)
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}

	name, err := cleanName(name)
	if err != nil {
		return err
	}

	if s.players.nameTaken(name, id) {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	p.name = name

	s.out.Broadcast(Event{
		Type: EventPlayerNameUpdated,
		Data: NamePayload{PlayerID: p.id, Name: name},
	})
	s.publish()

	return nil
}

func (s *Session) changePack(name string) error {
	if s.phase != PhaseLobby {
		return fmt.Errorf("%w: question pack can only change in the lobby", ErrPhaseMismatch)
	}

	if _, ok := s.packs[name]; !ok {
		return fmt.Errorf("%w: question pack %s", ErrNotFound, name)
	}

	s.pack = name

	s.log.Info().Str("pack", name).Msg("Question pack changed")

	s.publish()

	return nil
}
