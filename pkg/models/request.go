package models

import "time"

// InteractionType selects what the assistant is asked to do.
type InteractionType string

const (
	InteractionCorrection      InteractionType = "correction"
	InteractionExerciseRequest InteractionType = "exercise_request"
	InteractionExplanation     InteractionType = "explanation"
	InteractionConversation    InteractionType = "conversation"
)

// ResponseType returns the response type reported back for an interaction.
func (t InteractionType) ResponseType() string {
	switch t {
	case InteractionCorrection:
		return "correction"
	case InteractionExerciseRequest:
		return "exercise"
	case InteractionExplanation:
		return "explanation"
	default:
		return "feedback"
	}
}

// HistoryTurn is a previous message in a conversation.
type HistoryTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// InteractRequest is the body of POST /assistant/interact.
type InteractRequest struct {
	Message             string          `json:"message" validate:"required"`
	InteractionType     InteractionType `json:"interactionType" validate:"omitempty,oneof=correction exercise_request explanation conversation"`
	Module              string          `json:"module,omitempty"`
	Difficulty          string          `json:"difficulty,omitempty" validate:"omitempty,oneof=basico intermedio avanzado"`
	Context             string          `json:"context,omitempty"`
	UserID              string          `json:"userId,omitempty"`
	ConversationHistory []HistoryTurn   `json:"conversationHistory,omitempty" validate:"omitempty,max=50,dive"`
}

// InteractResponse is returned by POST /assistant/interact.
type InteractResponse struct {
	Response     string    `json:"response"`
	ResponseType string    `json:"responseType"`
	ModuleUsed   string    `json:"moduleUsed,omitempty"`
	Model        string    `json:"model"`
	RequestID    string    `json:"requestId"`
	Timestamp    time.Time `json:"timestamp"`
}

// ErrorResponse is returned when an interaction cannot be served.
type ErrorResponse struct {
	Response     string    `json:"response"`
	ResponseType string    `json:"responseType"`
	ErrorKind    string    `json:"errorKind"`
	RequestID    string    `json:"requestId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
