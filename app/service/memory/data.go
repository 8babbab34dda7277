package memory

// Sender identifies who authored a chat message.
type Sender string

const (
	// SenderUser is the end user asking for a reading.
	SenderUser Sender = "user"
	// SenderAI is the automated fortune teller.
	SenderAI Sender = "ai"
	// SenderOperator is the live teacher answering in the AI's place.
	SenderOperator Sender = "operator"
)

// Message is a single transcript entry. Immutable once created.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}
