package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mention-radar/internal/domain"
	"mention-radar/internal/storage"
)

// MentionStore implements storage.MentionStore using PostgreSQL.
type MentionStore struct {
	pool *Pool
}

// NewMentionStore creates a new MentionStore.
func NewMentionStore(pool *Pool) *MentionStore {
	return &MentionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MentionStore = (*MentionStore)(nil)

// UpsertToken inserts a token if absent.
func (s *MentionStore) UpsertToken(ctx context.Context, identifier, symbol, name string) error {
	if identifier == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_tokens (identifier, symbol, name, first_seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identifier) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query, identifier, nullable(symbol), nullable(name), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// RecordMention appends a mention. Returns ErrNotFound if the token is not tracked.
// The existence check and the foreign key both guard against a concurrent delete.
func (s *MentionStore) RecordMention(ctx context.Context, identifier, channelID, channelName string) error {
	query := `
		INSERT INTO mentions (token_identifier, channel_id, channel_name, occurred_at)
		SELECT $1::text, $2::text, $3::text, $4::bigint
		WHERE EXISTS (SELECT 1 FROM tracked_tokens WHERE identifier = $1::text)
	`

	tag, err := s.pool.Exec(ctx, query, identifier, channelID, channelName, time.Now().UnixMilli())
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("record mention: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetToken retrieves a token. Returns ErrNotFound if not exists.
func (s *MentionStore) GetToken(ctx context.Context, identifier string) (*domain.TrackedToken, error) {
	query := `
		SELECT identifier, symbol, name, escalated_by, first_seen_at
		FROM tracked_tokens
		WHERE identifier = $1
	`

	row := s.pool.QueryRow(ctx, query, identifier)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// ListMentions retrieves all mentions of a token, ordered by id ASC.
func (s *MentionStore) ListMentions(ctx context.Context, identifier string) ([]*domain.MentionRecord, error) {
	query := `
		SELECT id, token_identifier, channel_id, channel_name, occurred_at
		FROM mentions
		WHERE token_identifier = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, identifier)
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
	query := `UPDATE tracked_tokens SET escalated_by = $2 WHERE identifier = $1`

	if _, err := s.pool.Exec(ctx, query, identifier, nullable(name)); err != nil {
		return fmt.Errorf("set escalated_by: %w", err)
	}
	return nil
}

// ListAllTokens retrieves every tracked token, ordered by first_seen_at ASC.
func (s *MentionStore) ListAllTokens(ctx context.Context) ([]*domain.TrackedToken, error) {
	query := `
		SELECT identifier, symbol, name, escalated_by, first_seen_at
		FROM tracked_tokens
		ORDER BY first_seen_at ASC, identifier ASC
	`

	rows, err := s.pool.Query(ctx, query)
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
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracked_tokens`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

// DeleteToken removes a token; mentions go with it via ON DELETE CASCADE.
func (s *MentionStore) DeleteToken(ctx context.Context, identifier string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_tokens WHERE identifier = $1`, identifier)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanToken scans a single row into TrackedToken.
func scanToken(row pgx.Row) (*domain.TrackedToken, error) {
	var t domain.TrackedToken

	err := row.Scan(
		&t.Identifier,
		&t.Symbol,
		&t.Name,
		&t.EscalatedBy,
		&t.FirstSeenAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
