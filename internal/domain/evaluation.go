package domain

// Scores are the six 0-100 sub-scores of an evaluation.
type Scores struct {
	VerbalAbility   int `json:"verbalAbility"`
	Confidence      int `json:"confidence"`
	Interactivity   int `json:"interactivity"`
	ArgumentQuality int `json:"argumentQuality"`
	TopicRelevance  int `json:"topicRelevance"`
	Leadership      int `json:"leadership"`
}

// CompletionMetrics describe how much of the planned discussion took place.
type CompletionMetrics struct {
	ElapsedSeconds          int            `json:"elapsedSeconds"`
	ExpectedDurationSeconds int            `json:"expectedDurationSeconds"`
	SessionDurationMinutes  float64        `json:"sessionDurationMinutes"`
	ExpectedDurationMinutes float64        `json:"expectedDurationMinutes"`
	DurationRatio           float64        `json:"durationRatio"`
	CompletionPercentage    int            `json:"completionPercentage"`
	IsFullyCompleted        bool           `json:"isFullyCompleted"`
	TotalTurns              int            `json:"totalTurns"`
	UserTurns               int            `json:"userTurns"`
	TurnsByParticipant      map[string]int `json:"turnsByParticipant"`
}

// Evaluation is the scored feedback for the human participant.
type Evaluation struct {
	Scores
	OverallScore      int               `json:"overallScore"`
	RawOverallScore   int               `json:"rawOverallScore"`
	Feedback          string            `json:"feedback"`
	Strengths         []string          `json:"strengths"`
	Improvements      []string          `json:"improvements"`
	PauseCount        int               `json:"pauseCount"`
	PausePenalty      int               `json:"pausePenalty"`
	Fallback          bool              `json:"fallback,omitempty"`
	CompletionMetrics CompletionMetrics `json:"completionMetrics"`
}
