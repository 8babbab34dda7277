package conversation

import (
	"context"

	"loveoracle/app/service/memory"
)

// State of the single live session.
type State string

const (
	// StateCollecting: accumulating intake fields, no dialogue open yet.
	StateCollecting State = "collecting"
	// StateActive: a dialogue is open and the transcript accepts turns.
	StateActive State = "active"
)

// Intake holds the identity fields of the intake form. All are required;
// a missing field fails validation and no session is created.
type Intake struct {
	Name      string `json:"name" validate:"required"`
	BirthYear string `json:"birth_year" validate:"required"`
	Gender    string `json:"gender" validate:"required"`
}

// Artifact is the uploaded photo of the cast hexagram.
type Artifact struct {
	Data     []byte
	MimeType string
}

// Session is the one live end-user interaction. The dialogue handle exists
// only while the session is active and is dropped on the ended transition.
type Session struct {
	ID         string
	State      State
	Intake     Intake
	Artifact   Artifact
	Transcript []memory.Message

	dialogue Dialogue
}

// TurnResult reports what a submitted turn appended to the transcript.
type TurnResult struct {
	// Messages appended by this turn, in order.
	Messages []memory.Message
	// AwaitingOperator is set when the end user's message was accepted but
	// the automated responder is disabled, so a live answer is pending.
	AwaitingOperator bool
}

// DialogueService opens stateful dialogues with the generative backend.
// *gemini.Client satisfies it through the adapter in service.go.
type DialogueService interface {
	Open(ctx context.Context, systemInstruction string) (Dialogue, error)
}

// Dialogue is one open conversation with the generative backend.
type Dialogue interface {
	Send(ctx context.Context, text string) (string, error)
	SendImage(ctx context.Context, text string, data []byte, mimeType string) (string, error)
}
