package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mention-radar/internal/domain"
	"mention-radar/internal/storage"
)

// MentionStore implements storage.MentionStore on SQLite.
type MentionStore struct {
	db *DB
}

// NewMentionStore creates a new MentionStore. The schema must already be migrated.
func NewMentionStore(db *DB) *MentionStore {
	return &MentionStore{db: db}
}

var _ storage.MentionStore = (*MentionStore)(nil)

// UpsertToken inserts a token if absent.
func (s *MentionStore) UpsertToken(ctx context.Context, identifier, symbol, name string) error {
	if identifier == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tracked_tokens (identifier, symbol, name, first_seen_at)
		VALUES (?, ?, ?, ?)
	`, identifier, nullable(symbol), nullable(name), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// RecordMention appends a mention. Returns ErrNotFound if the token is not tracked.
func (s *MentionStore) RecordMention(ctx context.Context, identifier, channelID, channelName string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mentions (token_identifier, channel_id, channel_name, occurred_at)
		SELECT ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM tracked_tokens WHERE identifier = ?)
	`, identifier, channelID, channelName, time.Now().UnixMilli(), identifier)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("record mention: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record mention: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetToken retrieves a token. Returns ErrNotFound if not exists.
func (s *MentionStore) GetToken(ctx context.Context, identifier string) (*domain.TrackedToken, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identifier, symbol, name, escalated_by, first_seen_at
		FROM tracked_tokens
		WHERE identifier = ?
	`, identifier)

	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// ListMentions retrieves all mentions of a token, ordered by id ASC.
func (s *MentionStore) ListMentions(ctx context.Context, identifier string) ([]*domain.MentionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token_identifier, channel_id, channel_name, occurred_at
		FROM mentions
		WHERE token_identifier = ?
		ORDER BY id ASC
	`, identifier)
	if err != nil {
		return nil, fmt.Errorf("list mentions: %w", err)
	}
	defer rows.Close()

	var result []*domain.MentionRecord
	for rows.Next() {
		var m domain.MentionRecord
		if err := rows.Scan(&m.ID, &m.TokenIdentifier, &m.ChannelID, &m.ChannelName, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}
	return result, nil
}

// SetEscalatedBy overwrites the escalation annotation. No-op if the token is absent.
func (s *MentionStore) SetEscalatedBy(ctx context.Context, identifier, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracked_tokens SET escalated_by = ? WHERE identifier = ?`,
		nullable(name), identifier)
	if err != nil {
		return fmt.Errorf("set escalated_by: %w", err)
	}
	return nil
}

// ListAllTokens retrieves every tracked token, ordered by first_seen_at ASC.
func (s *MentionStore) ListAllTokens(ctx context.Context) ([]*domain.TrackedToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, symbol, name, escalated_by, first_seen_at
		FROM tracked_tokens
		ORDER BY first_seen_at ASC, identifier ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.TrackedToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}

// CountTokens returns the number of tracked tokens.
func (s *MentionStore) CountTokens(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracked_tokens`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

// DeleteToken removes a token; mentions go with it via ON DELETE CASCADE.
func (s *MentionStore) DeleteToken(ctx context.Context, identifier string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_tokens WHERE identifier = ?`, identifier)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (*domain.TrackedToken, error) {
	var t domain.TrackedToken
	if err := row.Scan(&t.Identifier, &t.Symbol, &t.Name, &t.EscalatedBy, &t.FirstSeenAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
