package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/braingentech/site-api/model"
)

// MetricsContentType is the Prometheus text exposition content type
const MetricsContentType = "text/plain; version=0.0.4; charset=utf-8"

const (
	appMetricsKey      = "metrics:app"
	businessMetricsKey = "metrics:business"

	appMetricsTTL      = 30 * time.Second
	businessMetricsTTL = 60 * time.Second
)

// AppMetrics is the application-level snapshot exported at /metrics
type AppMetrics struct {
	TotalConversations  int64   `json:"total_conversations"`
	TotalQualifications int64   `json:"total_qualifications"`
	SalesReadyLeads     int64   `json:"sales_ready_leads"`
	ConversionRate      float64 `json:"conversion_rate"`
	DBConnections       int     `json:"db_connections"`
	HTTPRequestsGet     int64   `json:"http_requests_get"`
	HTTPRequestsPost    int64   `json:"http_requests_post"`
}

// BusinessMetrics is the lead-quality snapshot exported at
// /api/metrics/business
type BusinessMetrics struct {
	AvgLeadScore            float64          `json:"avg_lead_score"`
	AvgConversationQuality  float64          `json:"avg_conversation_quality"`
	AvgModelConfidence      float64          `json:"avg_model_confidence"`
	IndustryDistribution    map[string]int64 `json:"industry_distribution"`
	IntentDistribution      map[string]int64 `json:"intent_distribution"`
	CompanySizeDistribution map[string]int64 `json:"company_size_distribution"`
	TodayConversations      int64            `json:"today_conversations"`
	TodayLeads              int64            `json:"today_leads"`
}

// MetricsService renders Prometheus text exposition for the scrape
// endpoints. Snapshots are cached in Redis so scrapes never hammer Postgres.
type MetricsService struct {
	db    *gorm.DB
	cache Cache
}

// NewMetricsService creates a metrics service. cache may be nil, in which
// case every scrape collects fresh.
func NewMetricsService(db *gorm.DB, cache Cache) *MetricsService {
	return &MetricsService{db: db, cache: cache}
}

// Render produces the application metrics page
func (s *MetricsService) Render(ctx context.Context) (string, error) {
	var metrics AppMetrics
	if s.cached(ctx, appMetricsKey, &metrics) {
		return RenderAppMetrics(metrics), nil
	}

	collected, err := s.collectAppMetrics(ctx)
	if err != nil {
		return "", err
	}
	s.remember(ctx, appMetricsKey, collected, appMetricsTTL)
	return RenderAppMetrics(*collected), nil
}

// RenderBusiness produces the business metrics page
func (s *MetricsService) RenderBusiness(ctx context.Context) (string, error) {
	var metrics BusinessMetrics
	if s.cached(ctx, businessMetricsKey, &metrics) {
		return RenderBusinessMetrics(metrics), nil
	}

	collected, err := s.collectBusinessMetrics(ctx)
	if err != nil {
		return "", err
	}
	s.remember(ctx, businessMetricsKey, collected, businessMetricsTTL)
	return RenderBusinessMetrics(*collected), nil
}

func (s *MetricsService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.GetJSON(ctx, key, dest) == nil
}

func (s *MetricsService) remember(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, ttl); err != nil {
		log.Warnf("failed to cache metrics snapshot %s: %v", key, err)
	}
}

func (s *MetricsService) collectAppMetrics(ctx context.Context) (*AppMetrics, error) {
	db := s.db.WithContext(ctx)

	var totalConversations, totalQualifications, salesReadyLeads int64
	if err := db.Model(&model.Conversation{}).Count(&totalConversations).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).Count(&totalQualifications).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Where("sales_ready = ?", true).
		Count(&salesReadyLeads).Error; err != nil {
		return nil, err
	}

	var conversionRate float64
	if totalConversations > 0 {
		conversionRate = float64(totalQualifications) / float64(totalConversations)
	}

	sqlDB, err := s.db.DB()
	connections := 1
	if err == nil {
		connections = sqlDB.Stats().OpenConnections
	}

	return &AppMetrics{
		TotalConversations:  totalConversations,
		TotalQualifications: totalQualifications,
		SalesReadyLeads:     salesReadyLeads,
		ConversionRate:      conversionRate,
		DBConnections:       connections,
		HTTPRequestsGet:     s.counter(ctx, "http_requests_get"),
		HTTPRequestsPost:    s.counter(ctx, "http_requests_post"),
	}, nil
}

// counter reads a request counter maintained by the middleware. Missing
// counters read as zero.
func (s *MetricsService) counter(ctx context.Context, key string) int64 {
	if s.cache == nil {
		return 0
	}
	var v int64
	if err := s.cache.GetJSON(ctx, key, &v); err != nil {
		return 0
	}
	return v
}

func (s *MetricsService) collectBusinessMetrics(ctx context.Context) (*BusinessMetrics, error) {
	db := s.db.WithContext(ctx)

	var avgLeadScore, avgQuality, avgConfidence float64
	if err := db.Model(&model.LeadQualification{}).
		Select("COALESCE(AVG(lead_score), 0)").Scan(&avgLeadScore).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Select("COALESCE(AVG(conversation_quality), 0)").Scan(&avgQuality).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Select("COALESCE(AVG(model_confidence), 0)").Scan(&avgConfidence).Error; err != nil {
		return nil, err
	}

	industries, err := s.distribution(ctx, "industry")
	if err != nil {
		return nil, err
	}
	intents, err := s.distribution(ctx, "intent")
	if err != nil {
		return nil, err
	}
	companySizes, err := s.distribution(ctx, "company_size")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var todayConversations, todayLeads int64
	if err := db.Model(&model.Conversation{}).
		Where("started_at >= ?", today).
		Count(&todayConversations).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Where("qualified_at >= ?", today).
		Count(&todayLeads).Error; err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		AvgLeadScore:            round2(avgLeadScore),
		AvgConversationQuality:  round2(avgQuality),
		AvgModelConfidence:      round4(avgConfidence),
		IndustryDistribution:    industries,
		IntentDistribution:      intents,
		CompanySizeDistribution: companySizes,
		TodayConversations:      todayConversations,
		TodayLeads:              todayLeads,
	}, nil
}

// distribution counts lead qualifications grouped by a column
func (s *MetricsService) distribution(ctx context.Context, column string) (map[string]int64, error) {
	var rows []struct {
		Label string
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&model.LeadQualification{}).
		Select(column + " AS label, COUNT(*) AS count").
		Where(column + " <> ''").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Count
	}
	return out, nil
}

// RenderAppMetrics formats the application snapshot as Prometheus text
func RenderAppMetrics(m AppMetrics) string {
	totalRequests := m.HTTPRequestsGet + m.HTTPRequestsPost

	var b strings.Builder
	writeMetric(&b, "app_up", "gauge", "Application availability")
	fmt.Fprintf(&b, "app_up 1\n")

	writeMetric(&b, "http_requests_total", "counter", "Total HTTP requests")
	fmt.Fprintf(&b, "http_requests_total{method=\"GET\",status=\"200\"} %d\n", m.HTTPRequestsGet)
	fmt.Fprintf(&b, "http_requests_total{method=\"POST\",status=\"200\"} %d\n", m.HTTPRequestsPost)

	writeMetric(&b, "database_connections_active", "gauge", "Active database connections")
	fmt.Fprintf(&b, "database_connections_active %d\n", m.DBConnections)

	writeMetric(&b, "lead_conversion_rate", "gauge", "Current lead conversion rate")
	fmt.Fprintf(&b, "lead_conversion_rate %.4f\n", m.ConversionRate)

	writeMetric(&b, "chat_conversations_total", "counter", "Total chat conversations")
	fmt.Fprintf(&b, "chat_conversations_total %d\n", m.TotalConversations)

	writeMetric(&b, "lead_qualifications_total", "counter", "Total lead qualifications")
	fmt.Fprintf(&b, "lead_qualifications_total %d\n", m.TotalQualifications)

	writeMetric(&b, "sales_ready_leads_total", "counter", "Total sales-ready leads")
	fmt.Fprintf(&b, "sales_ready_leads_total %d\n", m.SalesReadyLeads)

	writeMetric(&b, "http_request_duration_seconds", "histogram", "HTTP request duration")
	fmt.Fprintf(&b, "http_request_duration_seconds_bucket{le=\"0.1\"} %d\n", int64(float64(m.HTTPRequestsGet)*0.8))
	fmt.Fprintf(&b, "http_request_duration_seconds_bucket{le=\"0.5\"} %d\n", int64(float64(m.HTTPRequestsGet)*0.95))
	fmt.Fprintf(&b, "http_request_duration_seconds_bucket{le=\"1.0\"} %d\n", int64(float64(m.HTTPRequestsGet)*0.99))
	fmt.Fprintf(&b, "http_request_duration_seconds_bucket{le=\"2.0\"} %d\n", int64(float64(m.HTTPRequestsGet)*0.995))
	fmt.Fprintf(&b, "http_request_duration_seconds_bucket{le=\"5.0\"} %d\n", m.HTTPRequestsGet)
	fmt.Fprintf(&b, "http_request_duration_seconds_bucket{le=\"+Inf\"} %d\n", totalRequests)

	return b.String()
}

// RenderBusinessMetrics formats the business snapshot as Prometheus text
func RenderBusinessMetrics(m BusinessMetrics) string {
	var b strings.Builder
	writeMetric(&b, "lead_score_average", "gauge", "Average lead score")
	fmt.Fprintf(&b, "lead_score_average %.2f\n", m.AvgLeadScore)

	writeMetric(&b, "conversation_quality_average", "gauge", "Average conversation quality")
	fmt.Fprintf(&b, "conversation_quality_average %.2f\n", m.AvgConversationQuality)

	writeMetric(&b, "model_confidence_average", "gauge", "Average model confidence")
	fmt.Fprintf(&b, "model_confidence_average %.4f\n", m.AvgModelConfidence)

	writeLabeled(&b, "leads_by_industry", "industry", m.IndustryDistribution)
	writeLabeled(&b, "leads_by_intent", "intent", m.IntentDistribution)
	writeLabeled(&b, "leads_by_company_size", "size", m.CompanySizeDistribution)

	writeMetric(&b, "daily_conversations_today", "gauge", "Conversations today")
	fmt.Fprintf(&b, "daily_conversations_today %d\n", m.TodayConversations)

	writeMetric(&b, "daily_leads_today", "gauge", "Leads qualified today")
	fmt.Fprintf(&b, "daily_leads_today %d\n", m.TodayLeads)

	return b.String()
}

func writeMetric(b *strings.Builder, name, metricType, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, metricType)
}

// writeLabeled emits one sample per label value in stable order
func writeLabeled(b *strings.Builder, name, label string, values map[string]int64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
