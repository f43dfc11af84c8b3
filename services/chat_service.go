package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/braingentech/site-api/services/rag"
)

// FallbackAnswer is returned to the visitor when the RAG service is down
const FallbackAnswer = "I apologize, but I'm currently experiencing technical difficulties. " +
	"Please try again in a few moments, or contact our support team directly at " +
	"contact@braingentech.com for immediate assistance."

// autoQualifyMinTurns is the minimum conversation length before a chat
// exchange triggers automatic lead qualification
const autoQualifyMinTurns = 3

// SessionContext carries the visitor context the handlers extract from the
// incoming request
type SessionContext struct {
	IP           string
	UserAgent    string
	Referrer     string
	PagesVisited []string
	SessionStart time.Time
	PageViews    int
}

// chatMetadata builds the wire metadata for a chat call
func (s SessionContext) chatMetadata() rag.ChatMetadata {
	now := time.Now().UTC()
	sessionStart := ""
	if !s.SessionStart.IsZero() {
		sessionStart = s.SessionStart.UTC().Format(time.RFC3339)
	}
	return rag.ChatMetadata{
		UserAgent:    s.UserAgent,
		IPAddress:    s.IP,
		Referrer:     s.Referrer,
		PagesVisited: s.PagesVisited,
		SessionStart: sessionStart,
		Timestamp:    now.Format(time.RFC3339),
	}
}

// qualifyMetadata builds the wire metadata for a qualification call
func (s SessionContext) qualifyMetadata() rag.QualifyMetadata {
	now := time.Now().UTC()
	var sessionTime float64
	if !s.SessionStart.IsZero() {
		sessionTime = now.Sub(s.SessionStart.UTC()).Seconds()
	}
	return rag.QualifyMetadata{
		UserAgent:                s.UserAgent,
		IPAddress:                s.IP,
		Referrer:                 s.Referrer,
		PagesVisited:             s.PagesVisited,
		TotalSessionTime:         sessionTime,
		PageViews:                s.PageViews,
		QualificationRequestedAt: now.Format(time.RFC3339),
	}
}

// ChatTurnRecord is one completed exchange handed to the telemetry sink
type ChatTurnRecord struct {
	SessionID          string
	UserMessageID      string
	AssistantMessageID string
	UserMessage        string
	Answer             string
	Sources            []string
	ProcessingTime     float64
	ConversationLength int
	Session            SessionContext
}

// TelemetrySink persists conversation analytics. Failures must never block
// a chat response; callers log and move on.
type TelemetrySink interface {
	RecordChatTurn(ctx context.Context, record ChatTurnRecord) error
}

// Qualifier produces a lead qualification for a session
type Qualifier interface {
	Qualify(ctx context.Context, sessionID string, sess SessionContext) (*QualificationResult, error)
}

// HistoryFetcher resolves a session's conversation history, preferring the
// local store and falling back to the RAG service's own copy
type HistoryFetcher struct {
	store *ConversationStore
	rag   *rag.Client
}

// NewHistoryFetcher creates a history fetcher
func NewHistoryFetcher(store *ConversationStore, client *rag.Client) *HistoryFetcher {
	return &HistoryFetcher{store: store, rag: client}
}

// History returns the turns recorded for a session. A session unknown to
// both the store and the RAG service yields an empty history.
func (f *HistoryFetcher) History(ctx context.Context, sessionID string) ([]rag.Turn, error) {
	history, err := f.store.History(ctx, sessionID)
	if err != nil {
		log.Warnf("conversation store read failed for session %s: %v", sessionID, err)
	}
	if len(history) > 0 {
		return history, nil
	}

	resp, err := f.rag.Conversation(ctx, sessionID)
	if err != nil {
		log.Warnf("failed to fetch conversation from RAG service for session %s: %v", sessionID, err)
		return []rag.Turn{}, nil
	}
	if resp.ConversationHistory == nil {
		return []rag.Turn{}, nil
	}
	return resp.ConversationHistory, nil
}

// ChatResult is the outcome of one chat exchange
type ChatResult struct {
	SessionID          string
	Answer             string
	Sources            []string
	ConversationLength int
	Fallback           bool
	FallbackReason     string
}

// ChatService orchestrates chat exchanges: it proxies messages to the RAG
// service, tracks history in Redis, records analytics, and triggers
// automatic lead qualification once a conversation has enough substance.
type ChatService struct {
	rag       *rag.Client
	store     *ConversationStore
	history   *HistoryFetcher
	telemetry TelemetrySink
	qualifier Qualifier
}

// NewChatService creates the chat orchestrator. telemetry and qualifier may
// be nil; the corresponding steps are skipped.
func NewChatService(client *rag.Client, store *ConversationStore, telemetry TelemetrySink, qualifier Qualifier) *ChatService {
	return &ChatService{
		rag:       client,
		store:     store,
		history:   NewHistoryFetcher(store, client),
		telemetry: telemetry,
		qualifier: qualifier,
	}
}

// NewSessionID generates a session token for a first-contact visitor
func NewSessionID() string {
	return fmt.Sprintf("session_%s_%d", uuid.NewString(), time.Now().Unix())
}

// Chat handles one visitor message. When the RAG service is unreachable or
// errors, the result carries the apology fallback instead of an answer and
// Fallback is set; the caller decides the status code.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string, sess SessionContext) (*ChatResult, error) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	resp, err := s.rag.Chat(ctx, rag.ChatRequest{
		Message:   message,
		SessionID: sessionID,
		Metadata:  sess.chatMetadata(),
	})
	if err != nil {
		log.Errorf("RAG chat call failed for session %s: %v", sessionID, err)
		return &ChatResult{
			SessionID:      sessionID,
			Answer:         FallbackAnswer,
			Sources:        []string{},
			Fallback:       true,
			FallbackReason: "RAG API unavailable",
		}, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.store.Append(ctx, sessionID,
		rag.Turn{Role: "user", Content: message, Timestamp: now},
		rag.Turn{Role: "assistant", Content: resp.Answer, Timestamp: now},
	); err != nil {
		log.Warnf("failed to store conversation turns for session %s: %v", sessionID, err)
	}

	if s.telemetry != nil {
		id := uuid.NewString()
		record := ChatTurnRecord{
			SessionID:          sessionID,
			UserMessageID:      fmt.Sprintf("msg_%s_user", id),
			AssistantMessageID: fmt.Sprintf("msg_%s_assistant", id),
			UserMessage:        message,
			Answer:             resp.Answer,
			Sources:            resp.Sources,
			ProcessingTime:     resp.ProcessingTime,
			ConversationLength: resp.ConversationLength,
			Session:            sess,
		}
		if err := s.telemetry.RecordChatTurn(ctx, record); err != nil {
			log.Errorf("failed to record chat analytics for session %s: %v", sessionID, err)
		}
	}

	s.maybeQualify(ctx, sessionID, sess)

	log.Infof("chat exchange completed: session=%s processing_time=%.2f conversation_length=%d",
		sessionID, resp.ProcessingTime, resp.ConversationLength)

	return &ChatResult{
		SessionID:          sessionID,
		Answer:             resp.Answer,
		Sources:            resp.Sources,
		ConversationLength: resp.ConversationLength,
	}, nil
}

// maybeQualify runs lead qualification inline once the session has
// accumulated enough turns. Failures are logged and never affect the chat
// response.
func (s *ChatService) maybeQualify(ctx context.Context, sessionID string, sess SessionContext) {
	if s.qualifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, rag.DefaultTimeout+ConversationTimeoutGrace)
	defer cancel()

	history, err := s.history.History(ctx, sessionID)
	if err != nil || len(history) < autoQualifyMinTurns {
		return
	}

	result, err := s.qualifier.Qualify(ctx, sessionID, sess)
	if err != nil {
		log.Warnf("automatic lead qualification failed for session %s: %v", sessionID, err)
		return
	}
	log.Infof("automatic lead qualification completed: session=%s lead_score=%d sales_ready=%t fallback=%t",
		sessionID, result.Qualification.LeadScore, result.Qualification.SalesReady, result.FallbackUsed)
}

// ConversationTimeoutGrace pads automatic qualification beyond the RAG
// call timeout so persistence still completes.
const ConversationTimeoutGrace = 10 * time.Second

// History exposes the composite history lookup to handlers
func (s *ChatService) History(ctx context.Context, sessionID string) ([]rag.Turn, error) {
	return s.history.History(ctx, sessionID)
}

// Clear drops a session's history locally and on the RAG service. A failure
// on the remote side is logged but does not fail the call; the local state
// is already gone.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	if err := s.rag.ClearConversation(ctx, sessionID); err != nil {
		log.Warnf("failed to clear RAG-side conversation for session %s: %v", sessionID, err)
	}
	return nil
}

// HealthStatus describes the RAG service's reachability
type HealthStatus struct {
	Healthy bool
	Detail  map[string]interface{}
	Err     error
}

// Health probes the RAG service
func (s *ChatService) Health(ctx context.Context) HealthStatus {
	detail, err := s.rag.Health(ctx)
	if err != nil {
		return HealthStatus{Healthy: false, Err: err}
	}
	return HealthStatus{Healthy: true, Detail: detail}
}
