package domain

import "time"

// MaxChainLength is the most bot turns that follow one user action.
const MaxChainLength = 3

// Difficulty of the discussion topic.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free-form input onto a known difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// Phase is the stage of a discussion.
type Phase string

const (
	PhasePrep       Phase = "prep"
	PhaseActive     Phase = "active"
	PhaseConcluding Phase = "concluding"
	PhaseEnded      Phase = "ended"
)

// Action is what the user did on a turn.
type Action string

const (
	ActionSpeak        Action = "speak"
	ActionPause        Action = "pause"
	ActionSilenceBreak Action = "silence_break"
	ActionBegin        Action = "begin"
	ActionConclude     Action = "conclude"
)

// ParseAction maps request input onto an Action; an empty value means speak.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case "":
		return ActionSpeak, true
	case ActionSpeak, ActionPause, ActionSilenceBreak, ActionBegin, ActionConclude:
		return Action(s), true
	default:
		return "", false
	}
}

// Utterance is one transcript entry.
type Utterance struct {
	SpeakerID string    `json:"speakerId"`
	Speaker   string    `json:"speaker"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
