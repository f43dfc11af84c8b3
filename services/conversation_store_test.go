package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braingentech/site-api/services/rag"
	"github.com/braingentech/site-api/utils/cache"
)

// memoryCache is an in-memory stand-in for the Redis cache
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	m.ttls[key] = expiration
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return nil
}

func TestConversationStoreAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCache()
	store := NewConversationStore(mem)

	t.Run("unknown session yields empty history", func(t *testing.T) {
		history, err := store.History(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("appended turns come back in order", func(t *testing.T) {
		err := store.Append(ctx, "s1",
			rag.Turn{Role: "user", Content: "hello"},
			rag.Turn{Role: "assistant", Content: "hi there"},
		)
		require.NoError(t, err)

		history, err := store.History(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "user", history[0].Role)
		assert.Equal(t, "hello", history[0].Content)
		assert.Equal(t, "assistant", history[1].Role)
	})

	t.Run("every append refreshes the session TTL", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "s1", rag.Turn{Role: "user", Content: "more"}))
		assert.Equal(t, ConversationTTL, mem.ttls["conversation:s1"])
	})
}

func TestConversationStoreTrimsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(newMemoryCache())

	for i := 0; i < MaxConversationTurns+1; i++ {
		err := store.Append(ctx, "busy", rag.Turn{
			Role:    "user",
			Content: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	history, err := store.History(ctx, "busy")
	require.NoError(t, err)
	require.Len(t, history, MaxConversationTurns)

	// the oldest turn fell off the front
	assert.Equal(t, "message 1", history[0].Content)
	assert.Equal(t, fmt.Sprintf("message %d", MaxConversationTurns), history[len(history)-1].Content)
}

func TestConversationStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(newMemoryCache())

	require.NoError(t, store.Append(ctx, "gone", rag.Turn{Role: "user", Content: "hi"}))
	require.NoError(t, store.PutQualification(ctx, "gone", &rag.Qualification{LeadScore: 42}))

	require.NoError(t, store.Clear(ctx, "gone"))

	history, err := store.History(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, history)

	q, err := store.GetQualification(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestQualificationCache(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCache()
	store := NewConversationStore(mem)

	t.Run("missing qualification is nil without error", func(t *testing.T) {
		q, err := store.GetQualification(ctx, "unqualified")
		require.NoError(t, err)
		assert.Nil(t, q)
	})

	t.Run("roundtrip preserves the qualification", func(t *testing.T) {
		in := &rag.Qualification{
			Intent:     "quote",
			LeadScore:  85,
			SalesReady: true,
		}
		require.NoError(t, store.PutQualification(ctx, "s2", in))
		assert.Equal(t, QualificationTTL, mem.ttls["qualification:s2"])

		out, err := store.GetQualification(ctx, "s2")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, "quote", out.Intent)
		assert.Equal(t, 85, out.LeadScore)
		assert.True(t, out.SalesReady)
	})
}
