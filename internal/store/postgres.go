package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs, so tests can
// substitute pgxmock.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists messages to the messages table created by the
// migrations package.
type PostgresStore struct {
	db     pgxQuerier
	tracer trace.Tracer
}

// NewPostgresStore builds a Postgres-backed Store.
func NewPostgresStore(db pgxQuerier) *PostgresStore {
	if db == nil {
		panic("store: pgx pool cannot be nil")
	}
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("haven.store.postgres"),
	}
}

var _ Store = (*PostgresStore)(nil)

// Append inserts a message row and returns it with its serial id.
func (s *PostgresStore) Append(ctx context.Context, sessionID string, role chat.Role, text string) (chat.Message, error) {
	ctx, span := s.tracer.Start(ctx, "store.append")
	defer span.End()

	if err := validateAppend(sessionID, role, text); err != nil {
		return chat.Message{}, err
	}

	msg := chat.Message{SessionID: sessionID, Role: role, Text: text}
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (session_id, role, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, sessionID, string(role), text).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return chat.Message{}, &StorageError{Backend: "postgres", Op: "append", Err: err}
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	return msg, nil
}

// Recent reads the newest rows by id and reverses them into chronological order.
func (s *PostgresStore) Recent(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	ctx, span := s.tracer.Start(ctx, "store.recent")
	defer span.End()

	if err := validateRecent(sessionID, limit); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT role, text
		FROM messages
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, &StorageError{Backend: "postgres", Op: "recent", Err: err}
	}
	defer rows.Close()

	turns := make([]chat.Turn, 0, min(limit, 64))
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			span.RecordError(err)
			return nil, &StorageError{Backend: "postgres", Op: "recent", Err: fmt.Errorf("scan: %w", err)}
		}
		turns = append(turns, chat.Turn{Role: chat.Role(role), Text: text})
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, &StorageError{Backend: "postgres", Op: "recent", Err: err}
	}

	slices.Reverse(turns)
	return turns, nil
}
