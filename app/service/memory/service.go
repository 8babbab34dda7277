package memory

import (
	"log/slog"
	"sync"

	"github.com/samber/do"
)

// Service is the process-wide log of past session transcripts.
// It lives for the lifetime of the process only; append-only except for Clear.
type Service struct {
	mu       sync.RWMutex
	messages []Message
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{}, nil
}

// Append adds all messages to the end of the log, preserving their order.
// Appending an empty transcript is a no-op.
func (s *Service) Append(messages []Message) {
	if len(messages) == 0 {
		return
	}

	s.mu.Lock()
	s.messages = append(s.messages, messages...)
	total := len(s.messages)
	s.mu.Unlock()

	slog.Info("Folded transcript into memory",
		"appended", len(messages),
		"total", total,
	)
}

// Clear empties the log unconditionally.
func (s *Service) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	slog.Info("Cleared memory")
}

// Snapshot returns a read-only copy of the log.
func (s *Service) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Message, len(s.messages))
	copy(result, s.messages)

	return result
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}
