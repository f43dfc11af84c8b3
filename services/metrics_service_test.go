package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderAppMetrics(t *testing.T) {
	out := RenderAppMetrics(AppMetrics{
		TotalConversations:  120,
		TotalQualifications: 30,
		SalesReadyLeads:     12,
		ConversionRate:      0.25,
		DBConnections:       4,
		HTTPRequestsGet:     1000,
		HTTPRequestsPost:    200,
	})

	assert.Contains(t, out, "# HELP app_up Application availability\n# TYPE app_up gauge\napp_up 1\n")
	assert.Contains(t, out, "http_requests_total{method=\"GET\",status=\"200\"} 1000")
	assert.Contains(t, out, "http_requests_total{method=\"POST\",status=\"200\"} 200")
	assert.Contains(t, out, "database_connections_active 4")
	assert.Contains(t, out, "lead_conversion_rate 0.2500")
	assert.Contains(t, out, "chat_conversations_total 120")
	assert.Contains(t, out, "lead_qualifications_total 30")
	assert.Contains(t, out, "sales_ready_leads_total 12")
	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"+Inf\"} 1200")
	assert.True(t, strings.HasSuffix(out, "\n"), "exposition must end with a newline")
}

func TestRenderAppMetricsHistogramIsMonotonic(t *testing.T) {
	out := RenderAppMetrics(AppMetrics{HTTPRequestsGet: 1000, HTTPRequestsPost: 50})

	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"0.1\"} 800")
	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"0.5\"} 950")
	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"1.0\"} 990")
	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"2.0\"} 995")
	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"5.0\"} 1000")
	assert.Contains(t, out, "http_request_duration_seconds_bucket{le=\"+Inf\"} 1050")
}

func TestRenderBusinessMetrics(t *testing.T) {
	out := RenderBusinessMetrics(BusinessMetrics{
		AvgLeadScore:           62.5,
		AvgConversationQuality: 6.75,
		AvgModelConfidence:     0.8123,
		IndustryDistribution: map[string]int64{
			"fintech":    5,
			"healthcare": 3,
		},
		IntentDistribution:      map[string]int64{"quote": 4},
		CompanySizeDistribution: map[string]int64{"enterprise": 2},
		TodayConversations:      14,
		TodayLeads:              3,
	})

	assert.Contains(t, out, "# HELP lead_score_average Average lead score")
	assert.Contains(t, out, "lead_score_average 62.50")
	assert.Contains(t, out, "conversation_quality_average 6.75")
	assert.Contains(t, out, "model_confidence_average 0.8123")
	assert.Contains(t, out, "leads_by_industry{industry=\"fintech\"} 5")
	assert.Contains(t, out, "leads_by_industry{industry=\"healthcare\"} 3")
	assert.Contains(t, out, "leads_by_intent{intent=\"quote\"} 4")
	assert.Contains(t, out, "leads_by_company_size{size=\"enterprise\"} 2")
	assert.Contains(t, out, "daily_conversations_today 14")
	assert.Contains(t, out, "daily_leads_today 3")

	// label values render in stable sorted order
	assert.Less(t,
		strings.Index(out, "leads_by_industry{industry=\"fintech\"}"),
		strings.Index(out, "leads_by_industry{industry=\"healthcare\"}"),
	)
}

func TestMetricsContentType(t *testing.T) {
	assert.Equal(t, "text/plain; version=0.0.4; charset=utf-8", MetricsContentType)
}
