package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braingentech/site-api/model"
	"github.com/braingentech/site-api/services/rag"
)

func newTestLeadService(t *testing.T, handler http.Handler) (*LeadService, *ConversationStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := rag.NewClient(rag.Config{BaseURL: server.URL})
	store := NewConversationStore(newMemoryCache())
	return NewLeadService(client, store, nil), store
}

func TestQualifyWithoutHistory(t *testing.T) {
	var qualifyCalls int64
	svc, _ := newTestLeadService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/qualify" {
			atomic.AddInt64(&qualifyCalls, 1)
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	result, err := svc.Qualify(context.Background(), "session_unknown", SessionContext{})
	require.ErrorIs(t, err, ErrNoHistory)
	assert.Nil(t, result)
	assert.Zero(t, atomic.LoadInt64(&qualifyCalls), "empty sessions must not reach the upstream")
}

func TestQualifyFallsBackWhenUpstreamFails(t *testing.T) {
	svc, store := newTestLeadService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "session_fb",
		rag.Turn{Role: "user", Content: "I'm the CTO and we urgently need pricing for AI automation"},
		rag.Turn{Role: "assistant", Content: "happy to help"},
	))

	result, err := svc.Qualify(ctx, "session_fb", SessionContext{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.FallbackUsed)
	assert.Contains(t, result.Qualification.Notes, "Rule-based qualification")
	assert.True(t, result.Qualification.SalesReady)

	// the fallback result is cached like any other
	cached, err := store.GetQualification(ctx, "session_fb")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, result.Qualification.LeadScore, cached.LeadScore)
}

func TestRuleBasedQualification(t *testing.T) {
	t.Run("nil for empty history", func(t *testing.T) {
		assert.Nil(t, RuleBasedQualification(nil))
		assert.Nil(t, RuleBasedQualification([]rag.Turn{}))
	})

	t.Run("strong buying signals mark the lead sales ready", func(t *testing.T) {
		history := []rag.Turn{
			{Role: "user", Content: "I'm the CTO at Acme Corp and we urgently need pricing for AI automation"},
		}

		q := RuleBasedQualification(history)
		require.NotNil(t, q)

		assert.Equal(t, "quote", q.Intent)
		assert.Equal(t, "critical", q.Urgency)
		assert.Equal(t, "c_level", q.DecisionMakerLevel)
		assert.Equal(t, "acme corp", q.CompanyName)
		assert.Contains(t, q.TechnologyInterests, "ai")
		assert.Contains(t, q.TechnologyInterests, "automation")
		assert.Equal(t, 100, q.LeadScore, "score is capped at 100")
		assert.True(t, q.SalesReady)
		assert.Equal(t, "urgent", q.FollowUpPriority)
	})

	t.Run("vague browsing stays unqualified", func(t *testing.T) {
		history := []rag.Turn{
			{Role: "user", Content: "what services do you offer"},
		}

		q := RuleBasedQualification(history)
		require.NotNil(t, q)

		assert.Equal(t, "information", q.Intent)
		assert.Equal(t, "low", q.Urgency)
		assert.Equal(t, "unknown", q.DecisionMakerLevel)
		assert.Equal(t, 0, q.LeadScore)
		assert.False(t, q.SalesReady)
		assert.Equal(t, "low", q.FollowUpPriority)
	})

	t.Run("long conversations raise quality", func(t *testing.T) {
		history := make([]rag.Turn, 8)
		for i := range history {
			history[i] = rag.Turn{Role: "user", Content: "ok"}
		}

		q := RuleBasedQualification(history)
		require.NotNil(t, q)
		assert.Equal(t, 8, q.ConversationQuality)
	})

	t.Run("defaults carry the fallback fingerprint", func(t *testing.T) {
		q := RuleBasedQualification([]rag.Turn{{Role: "user", Content: "hello"}})
		require.NotNil(t, q)
		assert.Equal(t, 0.7, q.ModelConfidence)
		assert.Equal(t, "sme", q.CompanySize)
		assert.Equal(t, "other", q.Industry)
		assert.Contains(t, q.Notes, "Rule-based qualification")
		assert.NotEmpty(t, q.QualificationTimestamp)
	})
}

func TestClampHelpers(t *testing.T) {
	t.Run("lead score clamps to 0-100", func(t *testing.T) {
		assert.Equal(t, 0, clampInt(-5, 0, 100))
		assert.Equal(t, 100, clampInt(250, 0, 100))
		assert.Equal(t, 55, clampInt(55, 0, 100))
	})

	t.Run("quality defaults to 5 and clamps to 1-10", func(t *testing.T) {
		assert.Equal(t, 5, clampQuality(0))
		assert.Equal(t, 1, clampQuality(-3))
		assert.Equal(t, 10, clampQuality(99))
		assert.Equal(t, 7, clampQuality(7))
	})

	t.Run("confidence defaults to 0.5 and clamps to 0-1", func(t *testing.T) {
		assert.Equal(t, 0.5, clampConfidence(0))
		assert.Equal(t, 0.0, clampConfidence(-0.2))
		assert.Equal(t, 1.0, clampConfidence(3.5))
		assert.Equal(t, 0.85, clampConfidence(0.85))
	})

	t.Run("unknown follow-up priority falls back to medium", func(t *testing.T) {
		assert.Equal(t, model.FollowUpMedium, followUpPriority("whenever"))
		assert.Equal(t, model.FollowUpMedium, followUpPriority(""))
		assert.Equal(t, model.FollowUpUrgent, followUpPriority("urgent"))
	})
}

func TestMapIntentToRequestType(t *testing.T) {
	assert.Equal(t, "demo", mapIntentToRequestType("demo"))
	assert.Equal(t, "quote", mapIntentToRequestType("quote"))
	assert.Equal(t, "consultation", mapIntentToRequestType("consultation"))
	assert.Equal(t, "consultation", mapIntentToRequestType("information"))
	assert.Equal(t, "consultation", mapIntentToRequestType(""))
}

func TestConsultationStatus(t *testing.T) {
	tests := []struct {
		name          string
		leadScore     int
		urgency       string
		decisionLevel string
		expected      model.ConsultationRequestStatus
	}{
		{"top-tier lead is scheduled immediately", 95, "critical", "c_level", model.ConsultationScheduled},
		{"owner with high urgency is scheduled", 90, "high", "owner", model.ConsultationScheduled},
		{"high score but low urgency waits", 95, "low", "c_level", model.ConsultationPending},
		{"urgent but not a decision maker waits", 95, "critical", "manager", model.ConsultationPending},
		{"score below the bar waits", 85, "critical", "c_level", model.ConsultationPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, consultationStatus(tt.leadScore, tt.urgency, tt.decisionLevel))
		})
	}
}

func TestBuildConsultationNotes(t *testing.T) {
	q := &rag.Qualification{
		SalesReady:          true,
		CompanyName:         "Initech",
		CompanySize:         "enterprise",
		DecisionMakerLevel:  "c_level",
		Urgency:             "critical",
		TechnologyInterests: []string{"ai", "automation"},
		PainPoints:          []string{"Manual processes causing inefficiencies"},
		FollowUpPriority:    "urgent",
	}

	notes := buildConsultationNotes(q, 92)

	assert.Contains(t, notes, "BANT+ Score: 92/100")
	assert.Contains(t, notes, "Sales Ready: YES")
	assert.Contains(t, notes, "Company: Initech")
	assert.Contains(t, notes, "Size: Enterprise")
	assert.Contains(t, notes, "Urgency: Critical")
	assert.Contains(t, notes, "Tech Interests: ai, automation")
	assert.Contains(t, notes, "Follow-up Priority: Urgent")
}
