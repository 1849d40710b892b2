package storage

import (
	"context"

	"mention-radar/internal/domain"
)

// MentionStore provides access to tracked_tokens and mentions storage.
// Every method is atomic on its own; callers compose them without locks.
type MentionStore interface {
	// UpsertToken inserts a token if absent. Existing tokens are left untouched.
	// Empty symbol or name are stored as NULL.
	UpsertToken(ctx context.Context, identifier, symbol, name string) error

	// RecordMention appends a mention with the current timestamp.
	// Returns ErrNotFound if the token is not tracked.
	RecordMention(ctx context.Context, identifier, channelID, channelName string) error

	// GetToken retrieves a token. Returns ErrNotFound if not exists.
	GetToken(ctx context.Context, identifier string) (*domain.TrackedToken, error)

	// ListMentions retrieves all mentions of a token, ordered by id ASC.
	ListMentions(ctx context.Context, identifier string) ([]*domain.MentionRecord, error)

	// SetEscalatedBy overwrites the escalation annotation. No-op if the token is absent.
	SetEscalatedBy(ctx context.Context, identifier, name string) error

	// ListAllTokens retrieves every tracked token, ordered by first_seen_at ASC.
	ListAllTokens(ctx context.Context) ([]*domain.TrackedToken, error)

	// CountTokens returns the number of tracked tokens.
	CountTokens(ctx context.Context) (int, error)

	// DeleteToken removes a token together with all its mentions.
	// Reports whether a token was actually removed.
	DeleteToken(ctx context.Context, identifier string) (bool, error)
}
