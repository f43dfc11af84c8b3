package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braingentech/site-api/services/rag"
)

// recordingSink captures telemetry records for assertions
type recordingSink struct {
	mu      sync.Mutex
	records []ChatTurnRecord
}

func (r *recordingSink) RecordChatTurn(_ context.Context, record ChatTurnRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *recordingSink) all() []ChatTurnRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChatTurnRecord(nil), r.records...)
}

func newTestChatService(t *testing.T, handler http.Handler) (*ChatService, *recordingSink, *ConversationStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := rag.NewClient(rag.Config{BaseURL: server.URL})
	store := NewConversationStore(newMemoryCache())
	sink := &recordingSink{}
	return NewChatService(client, store, sink, nil), sink, store
}

func TestChatHappyPath(t *testing.T) {
	var gotRequest rag.ChatRequest
	svc, sink, store := newTestChatService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		json.NewEncoder(w).Encode(rag.ChatResponse{
			Answer:             "We offer AI consulting.",
			Sources:            []string{"services.md"},
			ConversationLength: 2,
			ProcessingTime:     0.42,
		})
	}))

	ctx := context.Background()
	result, err := svc.Chat(ctx, "session_abc_1", "What do you do?", SessionContext{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.False(t, result.Fallback)
	assert.Equal(t, "session_abc_1", result.SessionID)
	assert.Equal(t, "We offer AI consulting.", result.Answer)
	assert.Equal(t, []string{"services.md"}, result.Sources)
	assert.Equal(t, 2, result.ConversationLength)

	// upstream saw the message and session
	assert.Equal(t, "What do you do?", gotRequest.Message)
	assert.Equal(t, "session_abc_1", gotRequest.SessionID)
	assert.Equal(t, "10.0.0.1", gotRequest.Metadata.IPAddress)

	// both turns were stored
	history, err := store.History(ctx, "session_abc_1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "We offer AI consulting.", history[1].Content)

	// telemetry captured the exchange with paired message IDs
	records := sink.all()
	require.Len(t, records, 1)
	assert.True(t, strings.HasPrefix(records[0].UserMessageID, "msg_"))
	assert.True(t, strings.HasSuffix(records[0].UserMessageID, "_user"))
	assert.True(t, strings.HasSuffix(records[0].AssistantMessageID, "_assistant"))
	assert.Equal(t, 0.42, records[0].ProcessingTime)
}

func TestChatGeneratesSessionID(t *testing.T) {
	svc, _, _ := newTestChatService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rag.ChatResponse{Answer: "hi"})
	}))

	result, err := svc.Chat(context.Background(), "", "hello", SessionContext{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.SessionID, "session_"), "generated session ID: %s", result.SessionID)
	assert.GreaterOrEqual(t, strings.Count(result.SessionID, "_"), 2)
}

func TestChatFallsBackWhenUpstreamFails(t *testing.T) {
	svc, sink, store := newTestChatService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	result, err := svc.Chat(ctx, "session_down_1", "anyone there?", SessionContext{})
	require.NoError(t, err)

	assert.True(t, result.Fallback)
	assert.Equal(t, FallbackAnswer, result.Answer)
	assert.Equal(t, "RAG API unavailable", result.FallbackReason)
	assert.Equal(t, "session_down_1", result.SessionID)

	// a failed exchange is neither stored nor counted
	history, err := store.History(ctx, "session_down_1")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, sink.all())
}

func TestClearDropsLocalStateEvenIfUpstreamFails(t *testing.T) {
	svc, _, store := newTestChatService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "session_x", rag.Turn{Role: "user", Content: "hi"}))

	require.NoError(t, svc.Clear(ctx, "session_x"))

	history, err := store.History(ctx, "session_x")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHealth(t *testing.T) {
	t.Run("healthy upstream", func(t *testing.T) {
		svc, _, _ := newTestChatService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
		}))

		status := svc.Health(context.Background())
		assert.True(t, status.Healthy)
		assert.Equal(t, "ok", status.Detail["status"])
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		svc, _, _ := newTestChatService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		status := svc.Health(context.Background())
		assert.False(t, status.Healthy)
		assert.Error(t, status.Err)
	})
}

// recordingQualifier captures which sessions were handed to qualification
type recordingQualifier struct {
	mu       sync.Mutex
	sessions []string
}

func (q *recordingQualifier) Qualify(_ context.Context, sessionID string, _ SessionContext) (*QualificationResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sessions = append(q.sessions, sessionID)
	return &QualificationResult{Qualification: &rag.Qualification{LeadScore: 40}}, nil
}

func (q *recordingQualifier) seen() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.sessions...)
}

func TestChatRunsQualificationAfterEnoughTurns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rag.ChatResponse{Answer: "of course"})
	}))
	defer server.Close()

	client := rag.NewClient(rag.Config{BaseURL: server.URL})
	store := NewConversationStore(newMemoryCache())
	qualifier := &recordingQualifier{}
	svc := NewChatService(client, store, nil, qualifier)

	ctx := context.Background()

	// two prior turns plus this exchange crosses the qualification threshold
	require.NoError(t, store.Append(ctx, "session_warm",
		rag.Turn{Role: "user", Content: "tell me about pricing"},
		rag.Turn{Role: "assistant", Content: "happy to help"},
	))

	_, err := svc.Chat(ctx, "session_warm", "we need automation", SessionContext{})
	require.NoError(t, err)

	// qualification completed before Chat returned, on the same session
	assert.Equal(t, []string{"session_warm"}, qualifier.seen())

	// a fresh session has too little history to qualify
	_, err = svc.Chat(ctx, "session_cold", "hello", SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"session_warm"}, qualifier.seen())
}

func TestHistoryFetcherFallsBackToUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversation/session_remote", r.URL.Path)
		json.NewEncoder(w).Encode(rag.ConversationResponse{
			SessionID: "session_remote",
			ConversationHistory: []rag.Turn{
				{Role: "user", Content: "remembered remotely"},
			},
		})
	}))
	defer server.Close()

	client := rag.NewClient(rag.Config{BaseURL: server.URL})
	fetcher := NewHistoryFetcher(NewConversationStore(newMemoryCache()), client)

	history, err := fetcher.History(context.Background(), "session_remote")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "remembered remotely", history[0].Content)
}
