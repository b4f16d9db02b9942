package lieability

// EventType names an outbound message. The values are the wire names
// clients switch on.
type EventType string

const (
	EventPlayerJoined           EventType = "player_joined"
	EventPlayerLeft             EventType = "player_left"
	EventPlayerReconnected      EventType = "player_reconnected"
	EventGameStateUpdate        EventType = "game_state_update"
	EventGameStarted            EventType = "game_started"
	EventCategorySelectionStart EventType = "category_selection_start"
	EventQuestionReadingStart   EventType = "question_reading_start"
	EventLieSubmissionStart     EventType = "lie_submission_start"
	EventOptionSelectionStart   EventType = "option_selection_start"
	EventTimerUpdate            EventType = "timer_update"
	EventTruthRevealStart       EventType = "truth_reveal_start"
	EventScoreboardUpdate       EventType = "scoreboard_update"
	EventGameEnded              EventType = "game_ended"
	EventPlayerAvatarUpdated    EventType = "player_avatar_updated"
	EventPlayerNameUpdated      EventType = "player_name_updated"
	EventSubStepInfo            EventType = "sub_step_info"
	EventHostSubStepInfo        EventType = "host_sub_step_info"
	EventError                  EventType = "error"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Broadcaster delivers session events. Implementations must not block and
// must not call back into the session.
type Broadcaster interface {
	Broadcast(ev Event)
	SendTo(playerID string, ev Event)
}

type PlayerJoinedPayload struct {
	Player       Player `json:"player"`
	TotalPlayers int    `json:"totalPlayers"`
}

type PlayerLeftPayload struct {
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	TotalPlayers int    `json:"totalPlayers"`
}

type PlayerReconnectedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type GameStartedPayload struct {
	TotalRounds       int `json:"totalRounds"`
	QuestionsPerRound int `json:"questionsPerRound"`
	TotalPlayers      int `json:"totalPlayers"`
}

type CategoryChoice struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
}

// CategorySelectionPayload is broadcast without Categories; only the
// selector receives the list.
type CategorySelectionPayload struct {
	SelectorID   string           `json:"selectorId"`
	SelectorName string           `json:"selectorName"`
	Categories   []CategoryChoice `json:"categories,omitempty"`
	TimeLimit    int              `json:"timeLimit"`
	Round        int              `json:"round"`
	Question     int              `json:"questionNumber"`
}

type QuestionInfo struct {
	Category string `json:"category"`
	Question string `json:"question"`
}

type QuestionReadingPayload struct {
	QuestionInfo
	TimeLimit int  `json:"timeLimit"`
	Round     int  `json:"round"`
	Question  int  `json:"questionNumber"`
	IsFinal   bool `json:"isFinalRound"`
}

type LieSubmissionPayload struct {
	QuestionInfo
	TimeLimit int `json:"timeLimit"`
}

// OptionView is an option as players see it: no kind, no authors.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type OptionSelectionPayload struct {
	QuestionInfo
	Options   []OptionView `json:"options"`
	TimeLimit int          `json:"timeLimit"`
}

type TimerPayload struct {
	Type             Phase `json:"type"`
	SecondsRemaining int   `json:"secondsRemaining"`
}

type ScoreboardPayload struct {
	Players   []ScoreEntry `json:"players"`
	Round     int          `json:"round"`
	Question  int          `json:"questionNumber"`
	IsGameEnd bool         `json:"isGameEnd"`
}

type GameEndedPayload struct {
	FinalScores []ScoreEntry `json:"finalScores"`
	Winner      *ScoreEntry  `json:"winner,omitempty"`
}

type AvatarPayload struct {
	PlayerID string `json:"playerId"`
	Avatar   Avatar `json:"avatar"`
}

type NamePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}
