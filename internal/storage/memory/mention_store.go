package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mention-radar/internal/domain"
	"mention-radar/internal/storage"
)

// MentionStore is an in-memory implementation of storage.MentionStore.
type MentionStore struct {
	mu       sync.RWMutex
	tokens   map[string]*domain.TrackedToken    // keyed by identifier
	mentions map[string][]*domain.MentionRecord // keyed by token identifier
	nextID   int64
	now      func() int64
}

// NewMentionStore creates a new in-memory mention store.
func NewMentionStore() *MentionStore {
	return &MentionStore{
		tokens:   make(map[string]*domain.TrackedToken),
		mentions: make(map[string][]*domain.MentionRecord),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// UpsertToken inserts a token if absent.
func (s *MentionStore) UpsertToken(_ context.Context, identifier, symbol, name string) error {
	if identifier == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[identifier]; exists {
		return nil
	}

	s.tokens[identifier] = &domain.TrackedToken{
		Identifier:  identifier,
		Symbol:      nullable(symbol),
		Name:        nullable(name),
		FirstSeenAt: s.now(),
	}
	return nil
}

// RecordMention appends a mention. Returns ErrNotFound if the token is not tracked.
func (s *MentionStore) RecordMention(_ context.Context, identifier, channelID, channelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[identifier]; !exists {
		return storage.ErrNotFound
	}

	s.nextID++
	s.mentions[identifier] = append(s.mentions[identifier], &domain.MentionRecord{
		ID:              s.nextID,
		TokenIdentifier: identifier,
		ChannelID:       channelID,
		ChannelName:     channelName,
		OccurredAt:      s.now(),
	})
	return nil
}

// GetToken retrieves a token. Returns ErrNotFound if not exists.
func (s *MentionStore) GetToken(_ context.Context, identifier string) (*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tokens[identifier]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyToken(t), nil
}

// ListMentions retrieves all mentions of a token in insertion order.
func (s *MentionStore) ListMentions(_ context.Context, identifier string) ([]*domain.MentionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.mentions[identifier]
	result := make([]*domain.MentionRecord, 0, len(src))
	for _, m := range src {
		mCopy := *m
		result = append(result, &mCopy)
	}
	return result, nil
}

// SetEscalatedBy overwrites the escalation annotation. No-op if the token is absent.
func (s *MentionStore) SetEscalatedBy(_ context.Context, identifier, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[identifier]
	if !exists {
		return nil
	}
	t.EscalatedBy = nullable(name)
	return nil
}

// ListAllTokens retrieves every tracked token, oldest first.
func (s *MentionStore) ListAllTokens(_ context.Context) ([]*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TrackedToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		result = append(result, copyToken(t))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].FirstSeenAt != result[j].FirstSeenAt {
			return result[i].FirstSeenAt < result[j].FirstSeenAt
		}
		return result[i].Identifier < result[j].Identifier
	})
	return result, nil
}

// CountTokens returns the number of tracked tokens.
func (s *MentionStore) CountTokens(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens), nil
}

// DeleteToken removes a token and its mentions under one lock.
func (s *MentionStore) DeleteToken(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[identifier]; !exists {
		return false, nil
	}
	delete(s.tokens, identifier)
	delete(s.mentions, identifier)
	return true, nil
}

func copyToken(t *domain.TrackedToken) *domain.TrackedToken {
	tCopy := *t
	return &tCopy
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ storage.MentionStore = (*MentionStore)(nil)
