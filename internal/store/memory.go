package store

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

// MemoryStore keeps messages in process memory. It is the default backend
// and loses everything on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	closed   bool
	messages map[string][]chat.Message
	tracer   trace.Tracer
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]chat.Message),
		tracer:   otel.Tracer("haven.store.memory"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

// Append stores a message under the session.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, role chat.Role, text string) (chat.Message, error) {
	_, span := s.tracer.Start(ctx, "store.append")
	defer span.End()

	if err := validateAppend(sessionID, role, text); err != nil {
		return chat.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		span.RecordError(ErrClosed)
		return chat.Message{}, &StorageError{Backend: "memory", Op: "append", Err: ErrClosed}
	}

	s.nextID++
	msg := chat.Message{
		ID:        s.nextID,
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: s.now(),
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return msg, nil
}

// Recent returns the newest limit messages for the session, oldest first.
func (s *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	_, span := s.tracer.Start(ctx, "store.recent")
	defer span.End()

	if err := validateRecent(sessionID, limit); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		span.RecordError(ErrClosed)
		return nil, &StorageError{Backend: "memory", Op: "recent", Err: ErrClosed}
	}

	messages := s.messages[sessionID]
	start := len(messages) - limit
	if start < 0 {
		start = 0
	}

	turns := make([]chat.Turn, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		turns = append(turns, msg.Turn())
	}
	return turns, nil
}

// Close makes every later call fail with a StorageError.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
