package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomchat/loom/internal/msg"
	"github.com/loomchat/loom/internal/thread"
)

// Message repository errors.
var (
	ErrInvalidMessage = errors.New("invalid message")
)

// MessageRepository persists merged, thread-stamped messages. It realizes
// the external-store side of the engine: Load supplies the stored set,
// SaveMerged receives the merge output. Rows are keyed by the same
// identity key the merge engine deduplicates on, so re-persisting a merge
// result is an upsert, never a duplicate.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveMerged upserts a merged message set and records the batch. The
// whole batch is one transaction; droppedCount is the number of raw
// records ingestion rejected, kept for the audit trail.
func (r *MessageRepository) SaveMerged(ctx context.Context, messages []msg.Message, droppedCount int) (string, error) {
	for i := range messages {
		if err := messages[i].Validate(); err != nil {
			return "", fmt.Errorf("%w at index %d: %v", ErrInvalidMessage, i, err)
		}
	}

	batchID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		for i := range messages {
			if err := upsertMessage(ctx, tx, &messages[i], now); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO merge_batches (id, merged_count, dropped_count, created_at)
			VALUES (?, ?, ?, ?)
		`, batchID, len(messages), droppedCount, now)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to save merged messages: %w", err)
	}
	return batchID, nil
}

func upsertMessage(ctx context.Context, tx *sql.Tx, m *msg.Message, now string) error {
	var tsMillis *int64
	if m.Timestamp.Valid {
		millis := m.Timestamp.Millis
		tsMillis = &millis
	}

	var resourcesJSON *string
	if len(m.Resources) > 0 {
		data, err := json.Marshal(m.Resources)
		if err != nil {
			return fmt.Errorf("failed to marshal resources: %w", err)
		}
		s := string(data)
		resourcesJSON = &s
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (
			identity_key, id, role, content, ts_millis, raw_timestamp,
			thread_id, conversation_thread_id, conversation_id,
			parent_conversation_id, session_id, resources_json,
			is_current, is_stored, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			id = excluded.id,
			role = excluded.role,
			content = excluded.content,
			ts_millis = excluded.ts_millis,
			raw_timestamp = excluded.raw_timestamp,
			thread_id = excluded.thread_id,
			conversation_thread_id = excluded.conversation_thread_id,
			conversation_id = excluded.conversation_id,
			parent_conversation_id = excluded.parent_conversation_id,
			session_id = excluded.session_id,
			resources_json = excluded.resources_json,
			is_current = MAX(messages.is_current, excluded.is_current),
			is_stored = MAX(messages.is_stored, excluded.is_stored),
			updated_at = excluded.updated_at
	`,
		thread.IdentityKey(m),
		m.ID,
		string(m.Role),
		m.Content,
		tsMillis,
		m.RawTimestamp,
		m.ThreadID,
		m.ConversationThreadID,
		m.ConversationID,
		m.ParentConversationID,
		m.SessionID,
		resourcesJSON,
		boolToInt(m.IsCurrent),
		1, // everything persisted is stored by definition
		now,
	)
	return err
}

// Load returns every stored message ordered by timestamp ascending, rows
// without a timestamp last. Rows that no longer decode are skipped rather
// than failing the load; the store tolerates malformed records.
func (r *MessageRepository) Load(ctx context.Context) ([]msg.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT identity_key, id, role, content, ts_millis, raw_timestamp,
			thread_id, conversation_thread_id, conversation_id,
			parent_conversation_id, session_id, resources_json,
			is_current, is_stored
		FROM messages
		ORDER BY ts_millis IS NULL, ts_millis ASC, identity_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []msg.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// LoadThread returns the stored messages of one thread, ascending.
func (r *MessageRepository) LoadThread(ctx context.Context, threadID string) ([]msg.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT identity_key, id, role, content, ts_millis, raw_timestamp,
			thread_id, conversation_thread_id, conversation_id,
			parent_conversation_id, session_id, resources_json,
			is_current, is_stored
		FROM messages
		WHERE thread_id = ?
		ORDER BY ts_millis IS NULL, ts_millis ASC, identity_key ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var messages []msg.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Count returns the number of stored messages.
func (r *MessageRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func scanMessage(rows *sql.Rows) (msg.Message, error) {
	var (
		m             msg.Message
		role          string
		tsMillis      sql.NullInt64
		resourcesJSON sql.NullString
		isCurrent     int
		isStored      int
	)
	err := rows.Scan(
		&m.IdentityKey, &m.ID, &role, &m.Content, &tsMillis, &m.RawTimestamp,
		&m.ThreadID, &m.ConversationThreadID, &m.ConversationID,
		&m.ParentConversationID, &m.SessionID, &resourcesJSON,
		&isCurrent, &isStored,
	)
	if err != nil {
		return msg.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}

	if parsed, ok := msg.ParseRole(role); ok {
		m.Role = parsed
	}
	if tsMillis.Valid {
		m.Timestamp = msg.Timestamp{Millis: tsMillis.Int64, Valid: true}
	}
	if resourcesJSON.Valid && resourcesJSON.String != "" {
		// Unparseable resources are dropped, not fatal.
		_ = json.Unmarshal([]byte(resourcesJSON.String), &m.Resources)
	}
	m.IsCurrent = isCurrent != 0
	m.IsStored = isStored != 0
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
