// Package store persists the per-session message log.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

// Default window sizes for Recent.
const (
	DefaultContextLimit       = 10
	DefaultPromptContextLimit = 8
)

var (
	ErrInvalidLimit    = errors.New("store: limit must be positive")
	ErrInvalidRole     = errors.New("store: unknown message role")
	ErrEmptyText       = errors.New("store: message text is required")
	ErrSessionRequired = errors.New("store: session id is required")
	ErrClosed          = errors.New("store: closed")
)

// Store is an append-only message log with chronological retrieval.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records a message and assigns it the next store-wide id.
	Append(ctx context.Context, sessionID string, role chat.Role, text string) (chat.Message, error)
	// Recent returns up to limit of the newest messages for the session,
	// oldest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error)
}

// StorageError reports that the backing persistence failed.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func validateAppend(sessionID string, role chat.Role, text string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionRequired
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

func validateRecent(sessionID string, limit int) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionRequired
	}
	if limit < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}
