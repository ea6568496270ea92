package domain

// Event is an outbound message. Each event marshals to a flat JSON object
// carrying its kind in the "type" field.
type Event interface {
	EventType() string
}

const (
	EventGameStarted        = "game_started"
	EventNewQuestion        = "new_question"
	EventAnswerResult       = "answer_result"
	EventRoundEnded         = "round_ended"
	EventGameEnded          = "game_ended"
	EventPlayerJoined       = "player_joined"
	EventPlayerDisconnected = "player_disconnected"
	EventChat               = "chat"
	EventCreativeScores     = "creative_scores"
)

// NoAnswer is reported for participants who did not answer a round.
const NoAnswer = "No answer"

type GameStarted struct {
	Type           string        `json:"type"`
	ChallengeType  ChallengeType `json:"challenge_type"`
	TotalQuestions int           `json:"total_questions"`
	Players        []PlayerCard  `json:"players"`
}

func (GameStarted) EventType() string { return EventGameStarted }

type NewQuestion struct {
	Type        string `json:"type"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
	Question    string `json:"question"`
	TimeLimit   int    `json:"time_limit"`
	Points      int    `json:"points"`
	IsCreative  bool   `json:"is_creative"`
}

func (NewQuestion) EventType() string { return EventNewQuestion }

type AnswerResult struct {
	Type         string `json:"type"`
	Correct      bool   `json:"correct"`
	PointsEarned int    `json:"points_earned"`
	TotalScore   int    `json:"total_score"`
}

func (AnswerResult) EventType() string { return EventAnswerResult }

type RoundResult struct {
	PlayerID string `json:"player_id"`
	Answer   string `json:"answer"`
	Correct  bool   `json:"correct"`
	Points   int    `json:"points"`
}

type RoundEnded struct {
	Type          string        `json:"type"`
	Round         int           `json:"round"`
	CorrectAnswer *string       `json:"correct_answer"`
	RoundResults  []RoundResult `json:"round_results"`
	Standings     []Standing    `json:"standings"`
}

func (RoundEnded) EventType() string { return EventRoundEnded }

// RewardSchedule is the fixed star payout announced at game end.
type RewardSchedule struct {
	WinnerStars      int `json:"winner_stars"`
	ParticipantStars int `json:"participant_stars"`
}

type GameEnded struct {
	Type           string           `json:"type"`
	Winner         *Standing        `json:"winner"`
	FinalStandings []RankedStanding `json:"final_standings"`
	Rewards        RewardSchedule   `json:"rewards"`
}

func (GameEnded) EventType() string { return EventGameEnded }

type PlayerJoined struct {
	Type        string   `json:"type"`
	Player      Standing `json:"player"`
	PlayerCount int      `json:"player_count"`
}

func (PlayerJoined) EventType() string { return EventPlayerJoined }

type PlayerDisconnected struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

func (PlayerDisconnected) EventType() string { return EventPlayerDisconnected }

type Chat struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Message  string `json:"message"`
}

func (Chat) EventType() string { return EventChat }

// CreativeScore is the external grade for one creative answer.
type CreativeScore struct {
	PlayerID string `json:"player_id"`
	Round    int    `json:"round"`
	Points   int    `json:"points"`
}

type CreativeScores struct {
	Type   string          `json:"type"`
	Scores []CreativeScore `json:"scores"`
}

func (CreativeScores) EventType() string { return EventCreativeScores }
