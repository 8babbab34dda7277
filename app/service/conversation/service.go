package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"loveoracle/app/client/gemini"
	"loveoracle/app/service/instruction"
	"loveoracle/app/service/memory"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/do"
)

// Reply substituted when the automated responder fails mid-conversation,
// so the conversation never breaks.
const fallbackReply = "Xin lỗi, đã có lỗi xảy ra, tôi không thể trả lời lúc này."

const initialPromptTemplate = "Tên tôi là %s, sinh năm %s, giới tính %s. Đây là quẻ tôi vừa gieo được, xin hãy luận giải về tình duyên cho tôi."

var (
	ErrValidation    = errors.New("intake is incomplete")
	ErrBusy          = errors.New("a turn is already in progress")
	ErrSessionActive = errors.New("a session is already active")
	ErrNoSession     = errors.New("no active session")
)

// Service orchestrates the single live session: it composes the instruction
// context, opens dialogues, arbitrates turns between the automated responder
// and the live teacher, and folds ended sessions into memory.
type Service struct {
	dialogues DialogueService
	memorySvc *memory.Service
	composer  *instruction.Service
	validate  *validator.Validate

	mu      sync.Mutex
	session Session
	// busy gates submissions: one dialogue call at a time, a turn must
	// resolve before the next one is accepted.
	busy bool

	aiEnabled        bool
	promptOverlay    string
	knowledgeOverlay string
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		geminiDialogues{client: do.MustInvoke[*gemini.Client](di)},
		do.MustInvoke[*memory.Service](di),
		do.MustInvoke[*instruction.Service](di),
	), nil
}

func NewService(dialogues DialogueService, memorySvc *memory.Service, composer *instruction.Service) *Service {
	return &Service{
		dialogues: dialogues,
		memorySvc: memorySvc,
		composer:  composer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		session:   Session{State: StateCollecting},
		aiEnabled: true,
	}
}

// StartSession validates the intake, composes the instruction context from
// the current overlays and memory, opens a dialogue and sends the initial
// multimodal turn. On any failure the session stays in collecting state and
// the half-open dialogue is discarded.
func (s *Service) StartSession(ctx context.Context, intake Intake, artifact Artifact) (Session, error) {
	if err := s.validate.Struct(intake); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(artifact.Data) == 0 || artifact.MimeType == "" {
		return Session{}, fmt.Errorf("%w: hexagram image is missing", ErrValidation)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Session{}, ErrBusy
	}
	if s.session.State == StateActive {
		s.mu.Unlock()
		return Session{}, ErrSessionActive
	}

	systemInstruction := s.composer.Compose(s.promptOverlay, s.knowledgeOverlay, s.memorySvc.Snapshot())

	s.busy = true
	s.mu.Unlock()

	session, err := s.openAndGreet(ctx, systemInstruction, intake, artifact)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.session = session
	}
	s.mu.Unlock()

	if err != nil {
		return Session{}, err
	}

	slog.Info("Session started",
		"session_id", session.ID,
		"name", intake.Name,
		"memory_messages", s.memorySvc.Len(),
	)

	return session.snapshot(), nil
}

func (s *Service) openAndGreet(ctx context.Context, systemInstruction string, intake Intake, artifact Artifact) (Session, error) {
	dialogue, err := s.dialogues.Open(ctx, systemInstruction)
	if err != nil {
		return Session{}, fmt.Errorf("failed to open dialogue: %w", err)
	}

	prompt := fmt.Sprintf(initialPromptTemplate, intake.Name, intake.BirthYear, intake.Gender)

	reply, err := dialogue.SendImage(ctx, prompt, artifact.Data, artifact.MimeType)
	if err != nil {
		return Session{}, fmt.Errorf("failed to send initial turn: %w", err)
	}

	return Session{
		ID:       uuid.NewString(),
		State:    StateActive,
		Intake:   intake,
		Artifact: artifact,
		Transcript: []memory.Message{
			{Sender: memory.SenderAI, Text: reply},
		},
		dialogue: dialogue,
	}, nil
}

// SubmitTurn appends one turn to the transcript and, for end-user turns,
// consults the arbiter. A blank text is a no-op. A dialogue failure is
// converted to the fixed fallback reply instead of an error.
func (s *Service) SubmitTurn(ctx context.Context, sender memory.Sender, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, nil
	}

	s.mu.Lock()
	if s.session.State != StateActive {
		s.mu.Unlock()
		return TurnResult{}, ErrNoSession
	}
	if s.busy {
		s.mu.Unlock()
		return TurnResult{}, ErrBusy
	}

	turn := memory.Message{Sender: sender, Text: text}
	s.session.Transcript = append(s.session.Transcript, turn)

	decision := route(sender, s.aiEnabled)

	switch decision {
	case DecisionDirect:
		s.mu.Unlock()

		slog.Info("Live teacher replied", "text", text)

		return TurnResult{Messages: []memory.Message{turn}}, nil

	case DecisionSuppress:
		s.mu.Unlock()

		slog.Info("AI is disabled, turn left for the live teacher", "text", text)

		return TurnResult{Messages: []memory.Message{turn}, AwaitingOperator: true}, nil
	}

	dialogue := s.session.dialogue
	s.busy = true
	s.mu.Unlock()

	reply, err := dialogue.Send(ctx, text)
	if err != nil {
		slog.Error("Failed to generate reply", "error", err)
		reply = fallbackReply
	}

	aiTurn := memory.Message{Sender: memory.SenderAI, Text: reply}

	s.mu.Lock()
	s.busy = false
	s.session.Transcript = append(s.session.Transcript, aiTurn)
	s.mu.Unlock()

	return TurnResult{Messages: []memory.Message{turn, aiTurn}}, nil
}

// EndSession folds the transcript into memory, drops the dialogue handle and
// resets to collecting state. Ending without an active session is a no-op.
func (s *Service) EndSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.State != StateActive {
		return nil
	}
	if s.busy {
		return ErrBusy
	}

	s.memorySvc.Append(s.session.Transcript)

	slog.Info("Session ended",
		"session_id", s.session.ID,
		"transcript_messages", len(s.session.Transcript),
	)

	s.session = Session{State: StateCollecting}

	return nil
}

// Snapshot returns a copy of the live session for rendering.
func (s *Service) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session.snapshot()
}

func (s *Service) SetAIEnabled(enabled bool) {
	s.mu.Lock()
	s.aiEnabled = enabled
	s.mu.Unlock()

	slog.Info("AI responder toggled", "enabled", enabled, "telegram", true)
}

func (s *Service) AIEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.aiEnabled
}

// SetOverlays stores the teacher's additional instruction and reference
// knowledge. They take effect at the next session start; an open dialogue's
// instruction context is never mutated.
func (s *Service) SetOverlays(promptOverlay, knowledgeOverlay string) {
	s.mu.Lock()
	s.promptOverlay = promptOverlay
	s.knowledgeOverlay = knowledgeOverlay
	s.mu.Unlock()

	slog.Info("Teacher overlays updated",
		"prompt_len", len(promptOverlay),
		"knowledge_len", len(knowledgeOverlay),
	)
}

func (s *Service) Overlays() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.promptOverlay, s.knowledgeOverlay
}

func (sess Session) snapshot() Session {
	result := sess
	result.dialogue = nil
	result.Transcript = make([]memory.Message, len(sess.Transcript))
	copy(result.Transcript, sess.Transcript)

	return result
}

// geminiDialogues adapts *gemini.Client to the DialogueService seam.
type geminiDialogues struct {
	client *gemini.Client
}

func (g geminiDialogues) Open(ctx context.Context, systemInstruction string) (Dialogue, error) {
	return g.client.Open(ctx, systemInstruction)
}
