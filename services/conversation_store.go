package services

import (
	"context"
	"errors"
	"time"

	"github.com/braingentech/site-api/services/rag"
	"github.com/braingentech/site-api/utils/cache"
)

const (
	conversationKeyPrefix  = "conversation:"
	qualificationKeyPrefix = "qualification:"

	// MaxConversationTurns caps how many turns are retained per session
	MaxConversationTurns = 50
	// ConversationTTL is the sliding inactivity window for a session
	ConversationTTL = 60 * time.Minute
	// QualificationTTL is how long a qualification result is cached
	QualificationTTL = 24 * time.Hour
)

// Cache is the key/value surface the conversation store needs. Satisfied by
// cache.RedisCache.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ConversationStore keeps per-session conversation history and cached
// qualification results in Redis. History is bounded and expires after a
// period of inactivity; every write refreshes the TTL.
type ConversationStore struct {
	cache Cache
}

// NewConversationStore creates a store backed by the given cache
func NewConversationStore(c Cache) *ConversationStore {
	return &ConversationStore{cache: c}
}

// Append records one or more turns for a session, trimming the history to
// the most recent MaxConversationTurns entries
func (s *ConversationStore) Append(ctx context.Context, sessionID string, turns ...rag.Turn) error {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return err
	}

	history = append(history, turns...)
	if len(history) > MaxConversationTurns {
		history = history[len(history)-MaxConversationTurns:]
	}

	return s.cache.SetJSON(ctx, conversationKeyPrefix+sessionID, history, ConversationTTL)
}

// History returns the stored turns for a session. Unknown or expired
// sessions yield an empty history, not an error.
func (s *ConversationStore) History(ctx context.Context, sessionID string) ([]rag.Turn, error) {
	var history []rag.Turn
	err := s.cache.GetJSON(ctx, conversationKeyPrefix+sessionID, &history)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return []rag.Turn{}, nil
		}
		return nil, err
	}
	return history, nil
}

// Clear drops the history and any cached qualification for a session
func (s *ConversationStore) Clear(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx,
		conversationKeyPrefix+sessionID,
		qualificationKeyPrefix+sessionID,
	)
}

// PutQualification caches a qualification result for a session
func (s *ConversationStore) PutQualification(ctx context.Context, sessionID string, q *rag.Qualification) error {
	return s.cache.SetJSON(ctx, qualificationKeyPrefix+sessionID, q, QualificationTTL)
}

// GetQualification returns the cached qualification for a session, or nil
// when none is cached
func (s *ConversationStore) GetQualification(ctx context.Context, sessionID string) (*rag.Qualification, error) {
	var q rag.Qualification
	err := s.cache.GetJSON(ctx, qualificationKeyPrefix+sessionID, &q)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}
