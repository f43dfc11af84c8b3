package services

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/braingentech/site-api/model"
)

// trackedKeywords are the topic terms counted for the performance section
var trackedKeywords = []string{
	"ai", "artificial intelligence", "automation", "blockchain",
	"brain", "technology", "solution",
}

// AnalyticsService aggregates chat and lead data into the dashboard
// sections. All queries are read-only and scoped to a date range derived
// from the requested period.
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates an analytics service over the given database
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// AnalyticsData is the full dashboard payload
type AnalyticsData struct {
	Overview      OverviewMetrics     `json:"overview"`
	Conversations ConversationMetrics `json:"conversations"`
	Leads         LeadMetrics         `json:"leads"`
	Performance   PerformanceMetrics  `json:"performance"`
	Trends        TrendData           `json:"trends"`
	Traffic       TrafficMetrics      `json:"traffic"`
	Quality       QualityMetrics      `json:"quality"`
}

// OverviewMetrics summarizes the period with growth against the previous
// period of equal length
type OverviewMetrics struct {
	TotalConversations         int64   `json:"total_conversations"`
	TotalMessages              int64   `json:"total_messages"`
	QualifiedLeads             int64   `json:"qualified_leads"`
	SalesReadyLeads            int64   `json:"sales_ready_leads"`
	AvgMessagesPerConversation float64 `json:"avg_messages_per_conversation"`
	LeadConversionRate         float64 `json:"lead_conversion_rate"`
	SalesReadyRate             float64 `json:"sales_ready_rate"`
	ConversationGrowth         float64 `json:"conversation_growth"`
	LeadGrowth                 float64 `json:"lead_growth"`
}

// ConversationMetrics describes when and how long visitors chat
type ConversationMetrics struct {
	HourlyDistribution  []int64       `json:"hourly_distribution"`
	WeeklyDistribution  map[int]int64 `json:"weekly_distribution"`
	AvgDurationMinutes  float64       `json:"avg_duration_minutes"`
	ActiveConversations int64         `json:"active_conversations"`
}

// LabelCount is a generic grouped count
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ScoreBucket is a lead-score histogram bucket
type ScoreBucket struct {
	ScoreRange string `json:"score_range"`
	Count      int64  `json:"count"`
}

// IndustryCount pairs an industry with its lead count
type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int64  `json:"count"`
}

// IntentCount pairs an intent with its lead count
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int64  `json:"count"`
}

// CompanySizeCount pairs a company size with its lead count
type CompanySizeCount struct {
	CompanySize string `json:"company_size"`
	Count       int64  `json:"count"`
}

// LeadMetrics breaks qualified leads down by score, industry, intent and
// company size
type LeadMetrics struct {
	ScoreDistribution       []ScoreBucket      `json:"score_distribution"`
	TopIndustries           []IndustryCount    `json:"top_industries"`
	IntentDistribution      []IntentCount      `json:"intent_distribution"`
	CompanySizeDistribution []CompanySizeCount `json:"company_size_distribution"`
	AvgLeadScore            float64            `json:"avg_lead_score"`
}

// PerformanceMetrics covers latency, topics and error surface
type PerformanceMetrics struct {
	AvgResponseTime      float64        `json:"avg_response_time"`
	PopularKeywords      map[string]int `json:"popular_keywords"`
	TotalTokensProcessed int64          `json:"total_tokens_processed"`
	ErrorRate            float64        `json:"error_rate"`
}

// DateCount is a per-day count for trend charts
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ConversionPoint is one day of the conversion trend
type ConversionPoint struct {
	Date           string  `json:"date"`
	Conversations  int64   `json:"conversations"`
	Leads          int64   `json:"leads"`
	ConversionRate float64 `json:"conversion_rate"`
}

// TrendData feeds the dashboard line charts
type TrendData struct {
	DailyConversations []DateCount       `json:"daily_conversations"`
	DailyLeads         []DateCount       `json:"daily_leads"`
	ConversionTrend    []ConversionPoint `json:"conversion_trend"`
}

// ReferrerCount pairs a referrer with its session count
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// TrafficMetrics describes where visitors come from
type TrafficMetrics struct {
	TopReferrers   []ReferrerCount `json:"top_referrers"`
	UniqueVisitors int64           `json:"unique_visitors"`
	ReturnVisitors int64           `json:"return_visitors"`
}

// QualityMetrics tracks conversation quality and model confidence
type QualityMetrics struct {
	AvgConversationQuality   float64 `json:"avg_conversation_quality"`
	AvgModelConfidence       float64 `json:"avg_model_confidence"`
	HighQualityConversations int64   `json:"high_quality_conversations"`
}

// RealtimeMetrics is the low-latency snapshot for the live dashboard tile
type RealtimeMetrics struct {
	ActiveUsers        int64   `json:"activeUsers"`
	TodayConversations int64   `json:"todayConversations"`
	TodayLeads         int64   `json:"todayLeads"`
	ConversionRate     float64 `json:"conversionRate"`
	Timestamp          string  `json:"timestamp"`
}

// Data aggregates every dashboard section for the requested period.
// Unknown periods fall back to seven days.
func (s *AnalyticsService) Data(ctx context.Context, period string) (*AnalyticsData, error) {
	start, end := dateRange(period, time.Now().UTC())

	overview, err := s.overview(ctx, start, end)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversations(ctx, start, end)
	if err != nil {
		return nil, err
	}
	leads, err := s.leads(ctx, start, end)
	if err != nil {
		return nil, err
	}
	performance, err := s.performance(ctx, start, end)
	if err != nil {
		return nil, err
	}
	trends, err := s.trends(ctx, start, end)
	if err != nil {
		return nil, err
	}
	traffic, err := s.traffic(ctx, start, end)
	if err != nil {
		return nil, err
	}
	quality, err := s.quality(ctx, start, end)
	if err != nil {
		return nil, err
	}

	return &AnalyticsData{
		Overview:      *overview,
		Conversations: *conversations,
		Leads:         *leads,
		Performance:   *performance,
		Trends:        *trends,
		Traffic:       *traffic,
		Quality:       *quality,
	}, nil
}

// Realtime returns the live snapshot used by the dashboard header
func (s *AnalyticsService) Realtime(ctx context.Context) (*RealtimeMetrics, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var activeUsers int64
	err := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("last_activity_at >= ? AND is_active = ?", now.Add(-10*time.Minute), true).
		Count(&activeUsers).Error
	if err != nil {
		return nil, err
	}

	var todayConversations int64
	err = s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("started_at >= ?", today).
		Count(&todayConversations).Error
	if err != nil {
		return nil, err
	}

	var todayLeads int64
	err = s.db.WithContext(ctx).Model(&model.LeadQualification{}).
		Where("qualified_at >= ?", today).
		Count(&todayLeads).Error
	if err != nil {
		return nil, err
	}

	var conversionRate float64
	if todayConversations > 0 {
		conversionRate = round1(float64(todayLeads) / float64(todayConversations) * 100)
	}

	return &RealtimeMetrics{
		ActiveUsers:        activeUsers,
		TodayConversations: todayConversations,
		TodayLeads:         todayLeads,
		ConversionRate:     conversionRate,
		Timestamp:          now.Format(time.RFC3339),
	}, nil
}

func (s *AnalyticsService) overview(ctx context.Context, start, end time.Time) (*OverviewMetrics, error) {
	var totalConversations, totalMessages, qualifiedLeads, salesReadyLeads int64

	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Conversation{}).
		Where("started_at BETWEEN ? AND ?", start, end).
		Count(&totalConversations).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Message{}).
		Where("sent_at BETWEEN ? AND ?", start, end).
		Count(&totalMessages).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Where("qualified_at BETWEEN ? AND ?", start, end).
		Count(&qualifiedLeads).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Where("qualified_at BETWEEN ? AND ? AND sales_ready = ?", start, end, true).
		Count(&salesReadyLeads).Error; err != nil {
		return nil, err
	}

	prevStart, prevEnd := previousRange(start, end)
	var previousConversations, previousLeads int64
	if err := db.Model(&model.Conversation{}).
		Where("started_at BETWEEN ? AND ?", prevStart, prevEnd).
		Count(&previousConversations).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LeadQualification{}).
		Where("qualified_at BETWEEN ? AND ?", prevStart, prevEnd).
		Count(&previousLeads).Error; err != nil {
		return nil, err
	}

	out := &OverviewMetrics{
		TotalConversations: totalConversations,
		TotalMessages:      totalMessages,
		QualifiedLeads:     qualifiedLeads,
		SalesReadyLeads:    salesReadyLeads,
		ConversationGrowth: growthRate(totalConversations, previousConversations),
		LeadGrowth:         growthRate(qualifiedLeads, previousLeads),
	}
	if totalConversations > 0 {
		out.AvgMessagesPerConversation = round1(float64(totalMessages) / float64(totalConversations))
		out.LeadConversionRate = round1(float64(qualifiedLeads) / float64(totalConversations) * 100)
	}
	if qualifiedLeads > 0 {
		out.SalesReadyRate = round1(float64(salesReadyLeads) / float64(qualifiedLeads) * 100)
	}
	return out, nil
}

func (s *AnalyticsService) conversations(ctx context.Context, start, end time.Time) (*ConversationMetrics, error) {
	db := s.db.WithContext(ctx)

	var hourly []intBucket
	err := db.Model(&model.Conversation{}).
		Select("EXTRACT(HOUR FROM started_at)::int AS bucket, COUNT(*) AS count").
		Where("started_at BETWEEN ? AND ?", start, end).
		Group("bucket").Order("bucket").
		Scan(&hourly).Error
	if err != nil {
		return nil, err
	}

	var weekly []intBucket
	err = db.Model(&model.Conversation{}).
		Select("EXTRACT(DOW FROM started_at)::int AS bucket, COUNT(*) AS count").
		Where("started_at BETWEEN ? AND ?", start, end).
		Group("bucket").Order("bucket").
		Scan(&weekly).Error
	if err != nil {
		return nil, err
	}

	var avgDuration float64
	err = db.Model(&model.Conversation{}).
		Select("COALESCE(AVG(EXTRACT(EPOCH FROM (last_activity_at - started_at)) / 60), 0)").
		Where("started_at BETWEEN ? AND ?", start, end).
		Where("last_activity_at > started_at").
		Scan(&avgDuration).Error
	if err != nil {
		return nil, err
	}

	var active int64
	if err := db.Model(&model.Conversation{}).
		Where("is_active = ?", true).
		Count(&active).Error; err != nil {
		return nil, err
	}

	out := &ConversationMetrics{
		HourlyDistribution:  fillHours(hourly),
		WeeklyDistribution:  make(map[int]int64, len(weekly)),
		AvgDurationMinutes:  round1(avgDuration),
		ActiveConversations: active,
	}
	for _, b := range weekly {
		out.WeeklyDistribution[b.Bucket] = b.Count
	}
	return out, nil
}

// intBucket is a scan target for integer-keyed histogram queries
type intBucket struct {
	Bucket int
	Count  int64
}

// fillHours converts a sparse hour histogram into 24 dense entries
func fillHours(buckets []intBucket) []int64 {
	hours := make([]int64, 24)
	for _, b := range buckets {
		if b.Bucket >= 0 && b.Bucket < 24 {
			hours[b.Bucket] = b.Count
		}
	}
	return hours
}

func (s *AnalyticsService) leads(ctx context.Context, start, end time.Time) (*LeadMetrics, error) {
	db := s.db.WithContext(ctx)

	var scoreDistribution []ScoreBucket
	err := db.Model(&model.LeadQualification{}).
		Select(`CASE
			WHEN lead_score >= 80 THEN 'High (80-100)'
			WHEN lead_score >= 60 THEN 'Medium (60-79)'
			WHEN lead_score >= 40 THEN 'Low (40-59)'
			ELSE 'Very Low (0-39)'
		END AS score_range, COUNT(*) AS count`).
		Where("qualified_at BETWEEN ? AND ?", start, end).
		Group("score_range").
		Scan(&scoreDistribution).Error
	if err != nil {
		return nil, err
	}

	var topIndustries []IndustryCount
	err = db.Model(&model.LeadQualification{}).
		Select("industry, COUNT(*) AS count").
		Where("qualified_at BETWEEN ? AND ? AND industry <> ''", start, end).
		Group("industry").Order("count DESC").Limit(10).
		Scan(&topIndustries).Error
	if err != nil {
		return nil, err
	}

	var intentDistribution []IntentCount
	err = db.Model(&model.LeadQualification{}).
		Select("intent, COUNT(*) AS count").
		Where("qualified_at BETWEEN ? AND ? AND intent <> ''", start, end).
		Group("intent").Order("count DESC").
		Scan(&intentDistribution).Error
	if err != nil {
		return nil, err
	}

	var companySizes []CompanySizeCount
	err = db.Model(&model.LeadQualification{}).
		Select("company_size, COUNT(*) AS count").
		Where("qualified_at BETWEEN ? AND ? AND company_size <> ''", start, end).
		Group("company_size").Order("count DESC").
		Scan(&companySizes).Error
	if err != nil {
		return nil, err
	}

	var avgScore float64
	err = db.Model(&model.LeadQualification{}).
		Select("COALESCE(AVG(lead_score), 0)").
		Where("qualified_at BETWEEN ? AND ?", start, end).
		Scan(&avgScore).Error
	if err != nil {
		return nil, err
	}

	return &LeadMetrics{
		ScoreDistribution:       scoreDistribution,
		TopIndustries:           topIndustries,
		IntentDistribution:      intentDistribution,
		CompanySizeDistribution: companySizes,
		AvgLeadScore:            round1(avgScore),
	}, nil
}

func (s *AnalyticsService) performance(ctx context.Context, start, end time.Time) (*PerformanceMetrics, error) {
	db := s.db.WithContext(ctx)

	var avgResponseTime float64
	err := db.Model(&model.Message{}).
		Select("COALESCE(AVG((metadata->>'processing_time')::float), 0)").
		Where("sent_at BETWEEN ? AND ? AND role = ?", start, end, model.MessageRoleAssistant).
		Where("metadata->>'processing_time' IS NOT NULL").
		Scan(&avgResponseTime).Error
	if err != nil {
		return nil, err
	}

	var userMessages []string
	err = db.Model(&model.Message{}).
		Where("sent_at BETWEEN ? AND ? AND role = ?", start, end, model.MessageRoleUser).
		Pluck("content", &userMessages).Error
	if err != nil {
		return nil, err
	}

	var totalChars int64
	err = db.Model(&model.Message{}).
		Select("COALESCE(SUM(LENGTH(content)), 0)").
		Where("sent_at BETWEEN ? AND ?", start, end).
		Scan(&totalChars).Error
	if err != nil {
		return nil, err
	}

	var totalAssistant, errorMessages int64
	err = db.Model(&model.Message{}).
		Where("sent_at BETWEEN ? AND ? AND role = ?", start, end, model.MessageRoleAssistant).
		Count(&totalAssistant).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&model.Message{}).
		Where("sent_at BETWEEN ? AND ? AND role = ?", start, end, model.MessageRoleAssistant).
		Where("content ILIKE ? OR content ILIKE ?", "%error%", "%sorry%").
		Count(&errorMessages).Error
	if err != nil {
		return nil, err
	}

	return &PerformanceMetrics{
		AvgResponseTime:      round3(avgResponseTime),
		PopularKeywords:      countKeywords(userMessages),
		TotalTokensProcessed: estimateTokens(totalChars),
		ErrorRate:            errorRate(errorMessages, totalAssistant),
	}, nil
}

// errorRate is the share of assistant messages that apologised or reported
// an error, as a percentage. Zero assistant messages means a zero rate.
func errorRate(errorMessages, totalAssistant int64) float64 {
	if totalAssistant == 0 {
		return 0
	}
	return round2(float64(errorMessages) / float64(totalAssistant) * 100)
}

// countKeywords tallies tracked topic terms across user messages
func countKeywords(messages []string) map[string]int {
	counts := make(map[string]int)
	for _, content := range messages {
		lower := strings.ToLower(content)
		for _, term := range trackedKeywords {
			if strings.Contains(lower, term) {
				counts[term]++
			}
		}
	}
	return counts
}

// estimateTokens approximates token usage at four characters per token
func estimateTokens(chars int64) int64 {
	return int64(math.Round(float64(chars) / 4))
}

func (s *AnalyticsService) trends(ctx context.Context, start, end time.Time) (*TrendData, error) {
	db := s.db.WithContext(ctx)

	var dailyConversations []DateCount
	err := db.Model(&model.Conversation{}).
		Select("DATE(started_at)::text AS date, COUNT(*) AS count").
		Where("started_at BETWEEN ? AND ?", start, end).
		Group("DATE(started_at)").Order("date").
		Scan(&dailyConversations).Error
	if err != nil {
		return nil, err
	}

	var dailyLeads []DateCount
	err = db.Model(&model.LeadQualification{}).
		Select("DATE(qualified_at)::text AS date, COUNT(*) AS count").
		Where("qualified_at BETWEEN ? AND ?", start, end).
		Group("DATE(qualified_at)").Order("date").
		Scan(&dailyLeads).Error
	if err != nil {
		return nil, err
	}

	var conversionTrend []ConversionPoint
	err = db.Table("chat_conversations AS c").
		Joins("LEFT JOIN lead_qualifications l ON c.session_id = l.session_id").
		Select(`DATE(c.started_at)::text AS date,
			COUNT(c.id) AS conversations,
			COUNT(l.id) AS leads,
			CASE WHEN COUNT(c.id) > 0
				THEN ROUND(COUNT(l.id)::numeric / COUNT(c.id) * 100, 2)
				ELSE 0
			END AS conversion_rate`).
		Where("c.started_at BETWEEN ? AND ?", start, end).
		Group("DATE(c.started_at)").Order("date").
		Scan(&conversionTrend).Error
	if err != nil {
		return nil, err
	}

	return &TrendData{
		DailyConversations: dailyConversations,
		DailyLeads:         dailyLeads,
		ConversionTrend:    conversionTrend,
	}, nil
}

func (s *AnalyticsService) traffic(ctx context.Context, start, end time.Time) (*TrafficMetrics, error) {
	db := s.db.WithContext(ctx)

	var topReferrers []ReferrerCount
	err := db.Model(&model.Conversation{}).
		Select("referrer, COUNT(*) AS count").
		Where("started_at BETWEEN ? AND ? AND referrer <> ''", start, end).
		Group("referrer").Order("count DESC").Limit(10).
		Scan(&topReferrers).Error
	if err != nil {
		return nil, err
	}

	var uniqueVisitors int64
	err = db.Model(&model.Conversation{}).
		Where("started_at BETWEEN ? AND ?", start, end).
		Distinct("user_ip").
		Count(&uniqueVisitors).Error
	if err != nil {
		return nil, err
	}

	repeatVisitors := db.Model(&model.Conversation{}).
		Select("user_ip").
		Where("started_at BETWEEN ? AND ?", start, end).
		Group("user_ip").
		Having("COUNT(*) > 1")

	var returnVisitors int64
	err = db.Table("(?) AS repeat_visitors", repeatVisitors).
		Count(&returnVisitors).Error
	if err != nil {
		return nil, err
	}

	return &TrafficMetrics{
		TopReferrers:   topReferrers,
		UniqueVisitors: uniqueVisitors,
		ReturnVisitors: returnVisitors,
	}, nil
}

func (s *AnalyticsService) quality(ctx context.Context, start, end time.Time) (*QualityMetrics, error) {
	db := s.db.WithContext(ctx)

	var avgQuality, avgConfidence float64
	err := db.Model(&model.LeadQualification{}).
		Select("COALESCE(AVG(conversation_quality), 0)").
		Where("qualified_at BETWEEN ? AND ?", start, end).
		Scan(&avgQuality).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&model.LeadQualification{}).
		Select("COALESCE(AVG(model_confidence), 0)").
		Where("qualified_at BETWEEN ? AND ?", start, end).
		Scan(&avgConfidence).Error
	if err != nil {
		return nil, err
	}

	var highQuality int64
	err = db.Model(&model.LeadQualification{}).
		Where("qualified_at BETWEEN ? AND ? AND conversation_quality >= ?", start, end, 8).
		Count(&highQuality).Error
	if err != nil {
		return nil, err
	}

	return &QualityMetrics{
		AvgConversationQuality:   round2(avgQuality),
		AvgModelConfidence:       round3(avgConfidence),
		HighQualityConversations: highQuality,
	}, nil
}

// dateRange maps a period name onto a concrete window ending now. Unknown
// periods default to seven days.
func dateRange(period string, now time.Time) (time.Time, time.Time) {
	switch period {
	case "24hours":
		return now.AddDate(0, 0, -1), now
	case "7days":
		return now.AddDate(0, 0, -7), now
	case "30days":
		return now.AddDate(0, -1, 0), now
	case "90days":
		return now.AddDate(0, -3, 0), now
	default:
		return now.AddDate(0, 0, -7), now
	}
}

// previousRange is the window of equal length immediately before the
// current one
func previousRange(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-end.Sub(start)), start
}

// growthRate is the percentage change against the previous period. A
// previous period of zero counts as 100% growth when anything happened.
func growthRate(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round1(float64(current-previous) / float64(previous) * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
