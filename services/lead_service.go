package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/braingentech/site-api/model"
	"github.com/braingentech/site-api/services/rag"
)

var (
	// ErrNoHistory means the session has nothing to qualify from
	ErrNoHistory = errors.New("no conversation history found for qualification")
	// ErrQualificationUnavailable means the upstream failed and no
	// fallback result could be produced
	ErrQualificationUnavailable = errors.New("qualification service unavailable and fallback failed")
)

// salesReadyThreshold is the rule-based score at which a lead counts as
// sales ready
const salesReadyThreshold = 70

// QualificationResult is a qualification outcome plus how it was obtained
type QualificationResult struct {
	Qualification  *rag.Qualification
	FallbackUsed   bool
	ProcessingTime float64
}

// LeadService qualifies leads from conversation history. The RAG service
// does the real assessment; when it is down or declines, a deterministic
// rule-based scorer stands in so a signal is never lost.
type LeadService struct {
	rag     *rag.Client
	store   *ConversationStore
	history *HistoryFetcher
	db      *gorm.DB
}

// NewLeadService creates a lead qualification service. db may be nil, in
// which case results are cached but never written durably.
func NewLeadService(client *rag.Client, store *ConversationStore, db *gorm.DB) *LeadService {
	return &LeadService{
		rag:     client,
		store:   store,
		history: NewHistoryFetcher(store, client),
		db:      db,
	}
}

// Qualify assesses the lead behind a session. Results are cached in Redis
// and upserted into Postgres; high-priority leads additionally get an
// automatic consultation request.
func (s *LeadService) Qualify(ctx context.Context, sessionID string, sess SessionContext) (*QualificationResult, error) {
	history, err := s.history.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrNoHistory
	}

	resp, err := s.rag.Qualify(ctx, rag.QualifyRequest{
		SessionID:           sessionID,
		ConversationHistory: history,
		Metadata:            sess.qualifyMetadata(),
	})
	if err != nil || !resp.Success || resp.Qualification == nil {
		if err != nil {
			log.Errorf("RAG qualification call failed for session %s: %v", sessionID, err)
		} else {
			log.Warnf("RAG qualification unsuccessful for session %s, using rule-based fallback", sessionID)
		}

		fallback := RuleBasedQualification(history)
		if fallback == nil {
			return nil, ErrQualificationUnavailable
		}
		if err := s.persist(ctx, sessionID, fallback); err != nil {
			log.Errorf("failed to persist fallback qualification for session %s: %v", sessionID, err)
		}
		log.Infof("rule-based qualification fallback used: session=%s lead_score=%d", sessionID, fallback.LeadScore)
		return &QualificationResult{Qualification: fallback, FallbackUsed: true}, nil
	}

	if err := s.persist(ctx, sessionID, resp.Qualification); err != nil {
		log.Errorf("failed to persist qualification for session %s: %v", sessionID, err)
	}

	log.Infof("lead qualification completed: session=%s lead_score=%d sales_ready=%t",
		sessionID, resp.Qualification.LeadScore, resp.Qualification.SalesReady)

	return &QualificationResult{
		Qualification:  resp.Qualification,
		ProcessingTime: resp.ProcessingTime,
	}, nil
}

// Cached returns the qualification cached for a session, if any
func (s *LeadService) Cached(ctx context.Context, sessionID string) (*rag.Qualification, error) {
	return s.store.GetQualification(ctx, sessionID)
}

// persist caches the result in Redis and upserts the database row. Values
// are clamped to their database ranges at this boundary.
func (s *LeadService) persist(ctx context.Context, sessionID string, q *rag.Qualification) error {
	if err := s.store.PutQualification(ctx, sessionID, q); err != nil {
		log.Warnf("failed to cache qualification for session %s: %v", sessionID, err)
	}
	if s.db == nil {
		return nil
	}

	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	row := model.LeadQualification{
		SessionID:            sessionID,
		Intent:               q.Intent,
		Urgency:              q.Urgency,
		CompanySize:          q.CompanySize,
		Industry:             q.Industry,
		CompanyName:          q.CompanyName,
		TechnologyInterests:  model.StringArray(q.TechnologyInterests),
		PainPoints:           model.StringArray(q.PainPoints),
		UseCases:             strings.Join(q.UseCases, "; "),
		DecisionMakerLevel:   q.DecisionMakerLevel,
		GeographicRegion:     q.GeographicRegion,
		Timezone:             q.Timezone,
		LeadScore:            clampInt(q.LeadScore, 0, 100),
		SalesReady:           q.SalesReady,
		Notes:                q.Notes,
		ConversationQuality:  clampQuality(q.ConversationQuality),
		FollowUpPriority:     followUpPriority(q.FollowUpPriority),
		ModelConfidence:      clampConfidence(q.ModelConfidence),
		QualifiedAt:          now,
		RawQualificationData: datatypes.JSON(raw),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"intent", "urgency", "company_size", "industry", "company_name",
			"technology_interests", "pain_points", "use_cases",
			"decision_maker_level", "geographic_region", "timezone",
			"lead_score", "sales_ready", "notes", "conversation_quality",
			"follow_up_priority", "model_confidence", "qualified_at",
			"raw_qualification_data", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	if row.HighPriority() {
		log.Infof("high-priority lead detected: session=%s lead_score=%d sales_ready=%t company_size=%s industry=%s",
			sessionID, row.LeadScore, row.SalesReady, row.CompanySize, row.Industry)
		if err := s.createAutoConsultationRequest(ctx, sessionID, q, row.LeadScore); err != nil {
			log.Errorf("failed to create automatic consultation request for session %s: %v", sessionID, err)
		}
	}

	return nil
}

// createAutoConsultationRequest files a consultation request for a sales
// ready lead so the sales team sees it without any manual step
func (s *LeadService) createAutoConsultationRequest(ctx context.Context, sessionID string, q *rag.Qualification, leadScore int) error {
	requestType := mapIntentToRequestType(q.Intent)
	status := consultationStatus(leadScore, q.Urgency, q.DecisionMakerLevel)

	industry := q.Industry
	if industry == "" {
		industry = "other"
	}

	now := time.Now().UTC()
	row := model.ConsultationRequest{
		SessionID:   sessionID,
		Industry:    industry,
		RequestType: requestType,
		Status:      status,
		Notes:       buildConsultationNotes(q, leadScore),
		RequestedAt: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"industry", "request_type", "status", "notes", "requested_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	log.Infof("automatic consultation request created: session=%s request_type=%s status=%s lead_score=%d",
		sessionID, requestType, status, leadScore)
	return nil
}

func mapIntentToRequestType(intent string) string {
	switch intent {
	case "demo":
		return "demo"
	case "quote":
		return "quote"
	default:
		return "consultation"
	}
}

// consultationStatus schedules top-tier leads immediately, everything else
// waits in the queue
func consultationStatus(leadScore int, urgency, decisionLevel string) model.ConsultationRequestStatus {
	if leadScore >= 90 &&
		(urgency == "critical" || urgency == "high") &&
		(decisionLevel == "c_level" || decisionLevel == "owner") {
		return model.ConsultationScheduled
	}
	return model.ConsultationPending
}

func buildConsultationNotes(q *rag.Qualification, leadScore int) string {
	notes := []string{
		fmt.Sprintf("BANT+ Score: %d/100", leadScore),
		fmt.Sprintf("Sales Ready: %s", yesNo(q.SalesReady)),
	}
	if q.CompanyName != "" {
		notes = append(notes, "Company: "+q.CompanyName)
	}
	notes = append(notes,
		"Size: "+titleCase(orUnknown(q.CompanySize)),
		"Decision Level: "+titleCase(orUnknown(q.DecisionMakerLevel)),
	)
	if q.Urgency != "" {
		notes = append(notes, "Urgency: "+titleCase(q.Urgency))
	}
	if len(q.TechnologyInterests) > 0 {
		notes = append(notes, "Tech Interests: "+strings.Join(q.TechnologyInterests, ", "))
	}
	if len(q.PainPoints) > 0 {
		notes = append(notes, "Pain Points: "+strings.Join(q.PainPoints, "; "))
	}
	priority := q.FollowUpPriority
	if priority == "" {
		priority = "medium"
	}
	notes = append(notes,
		"Follow-up Priority: "+titleCase(priority),
		"Generated automatically from BANT+ qualification",
	)
	return strings.Join(notes, " | ")
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampQuality(v int) int {
	if v == 0 {
		return 5
	}
	return clampInt(v, 1, 10)
}

func clampConfidence(v float64) float64 {
	if v == 0 {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func followUpPriority(v string) model.FollowUpPriority {
	switch model.FollowUpPriority(v) {
	case model.FollowUpLow, model.FollowUpMedium, model.FollowUpHigh, model.FollowUpUrgent:
		return model.FollowUpPriority(v)
	default:
		return model.FollowUpMedium
	}
}

var companyNamePattern = regexp.MustCompile(`(?i)(?:at|from|with)\s+([a-z][a-z\s]+(?:corp|inc|llc|ltd|company|solutions|tech|technologies))`)

// RuleBasedQualification scores a lead from keyword signals alone. It is
// the deterministic stand-in for the AI qualifier and always produces a
// result for a non-empty history.
func RuleBasedQualification(history []rag.Turn) *rag.Qualification {
	if len(history) == 0 {
		return nil
	}

	var b strings.Builder
	for _, turn := range history {
		b.WriteString(" ")
		b.WriteString(strings.ToLower(turn.Content))
	}
	content := strings.TrimSpace(b.String())

	q := &rag.Qualification{
		Intent:                 "information",
		Urgency:                "low",
		CompanySize:            "sme",
		Industry:               "other",
		TechnologyInterests:    []string{},
		PainPoints:             []string{},
		DecisionMakerLevel:     "unknown",
		ConversationQuality:    5,
		FollowUpPriority:       "medium",
		ModelConfidence:        0.7,
		QualificationTimestamp: time.Now().UTC().Format(time.RFC3339),
	}

	score := 0

	// intent
	switch {
	case containsAny(content, "quote", "pricing", "cost", "budget", "price"):
		q.Intent = "quote"
		score += 25
	case containsAny(content, "demo", "demonstration", "show", "example"):
		q.Intent = "demo"
		score += 22
	case containsAny(content, "consultation", "meeting", "schedule", "discuss"):
		q.Intent = "consultation"
		score += 20
	}

	// urgency
	switch {
	case containsAny(content, "urgent", "asap", "immediately", "critical", "emergency"):
		q.Urgency = "critical"
		score += 25
	case containsAny(content, "soon", "quick", "fast", "weeks", "month"):
		q.Urgency = "high"
		score += 20
	case containsAny(content, "next quarter", "planning", "future", "months"):
		q.Urgency = "medium"
		score += 10
	}

	// company size
	switch {
	case containsAny(content, "enterprise", "500+", "1000+", "large", "corporation"):
		q.CompanySize = "enterprise"
		score += 25
	case containsAny(content, "50", "100", "200", "employees", "team"):
		q.CompanySize = "mid_market"
		score += 15
	case containsAny(content, "startup", "small", "10", "20"):
		q.CompanySize = "startup"
		score += 5
	}

	// decision maker level
	switch {
	case containsAny(content, "cto", "ceo", "cfo", "chief", "founder"):
		q.DecisionMakerLevel = "c_level"
		score += 30
	case containsAny(content, "owner"):
		q.DecisionMakerLevel = "owner"
		score += 30
	case containsAny(content, "director", "vp", "vice president", "head of"):
		q.DecisionMakerLevel = "director"
		score += 25
	case containsAny(content, "manager", "lead", "supervisor"):
		q.DecisionMakerLevel = "manager"
		score += 15
	}

	// budget signals
	if containsAny(content, "budget", "approved", "$", "million", "000", "investment") {
		score += 20
		q.PainPoints = append(q.PainPoints, "Budget approved for automation initiatives")
	}

	// industry
	switch {
	case containsAny(content, "fintech", "banking", "finance", "financial"):
		q.Industry = "fintech"
		score += 10
	case containsAny(content, "healthcare", "hospital", "medical", "patient"):
		q.Industry = "healthcare"
		score += 10
	case containsAny(content, "retail", "ecommerce", "store"):
		q.Industry = "retail"
		score += 10
	case containsAny(content, "technology", "tech", "software", "it"):
		q.Industry = "technology"
		score += 10
	}

	// technology interests
	if containsAny(content, "ai", "artificial intelligence", "machine learning") {
		q.TechnologyInterests = append(q.TechnologyInterests, "ai")
		score += 10
	}
	if containsAny(content, "automation", "automate", "process automation") {
		q.TechnologyInterests = append(q.TechnologyInterests, "automation")
		score += 10
	}

	// pain points
	if containsAny(content, "manual", "time consuming", "inefficient", "errors") {
		q.PainPoints = append(q.PainPoints, "Manual processes causing inefficiencies")
		score += 10
	}

	// company name extraction
	if m := companyNamePattern.FindStringSubmatch(content); m != nil {
		q.CompanyName = strings.TrimSpace(m[1])
		score += 10
	}

	// conversation quality scales with engagement
	switch {
	case len(history) >= 8:
		q.ConversationQuality = 8
		score += 5
	case len(history) >= 6:
		q.ConversationQuality = 7
		score += 3
	case len(history) >= 4:
		q.ConversationQuality = 6
	}

	q.LeadScore = clampInt(score, 0, 100)
	q.SalesReady = score >= salesReadyThreshold

	switch {
	case score >= 80:
		q.FollowUpPriority = "urgent"
	case score >= 60:
		q.FollowUpPriority = "high"
	case score >= 40:
		q.FollowUpPriority = "medium"
	default:
		q.FollowUpPriority = "low"
	}

	q.Notes = fmt.Sprintf(
		"Rule-based qualification: Score %d/100. Intent: %s, Company: %s, Decision Level: %s. Fallback system used due to AI API failure.",
		score, q.Intent, q.CompanySize, q.DecisionMakerLevel,
	)

	return q
}

func containsAny(content string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}
