package rag

// Turn is one entry of a conversation history as exchanged with the RAG
// service. Timestamps are RFC 3339 strings on the wire.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatMetadata carries visitor context alongside a chat message
type ChatMetadata struct {
	UserAgent    string   `json:"user_agent,omitempty"`
	IPAddress    string   `json:"ip_address,omitempty"`
	Referrer     string   `json:"referrer,omitempty"`
	PagesVisited []string `json:"pages_visited,omitempty"`
	SessionStart string   `json:"session_start,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
}

// ChatRequest is the payload sent to the RAG chat endpoint
type ChatRequest struct {
	Message   string       `json:"message"`
	SessionID string       `json:"session_id"`
	Metadata  ChatMetadata `json:"metadata"`
}

// ChatResponse is the RAG chat answer
type ChatResponse struct {
	Answer             string   `json:"answer"`
	Sources            []string `json:"sources,omitempty"`
	ConversationLength int      `json:"conversation_length,omitempty"`
	ProcessingTime     float64  `json:"processing_time,omitempty"`
}

// QualifyMetadata carries session context for a qualification request
type QualifyMetadata struct {
	UserAgent                string   `json:"user_agent,omitempty"`
	IPAddress                string   `json:"ip_address,omitempty"`
	Referrer                 string   `json:"referrer,omitempty"`
	PagesVisited             []string `json:"pages_visited,omitempty"`
	TotalSessionTime         float64  `json:"total_session_time,omitempty"`
	PageViews                int      `json:"page_views,omitempty"`
	QualificationRequestedAt string   `json:"qualification_requested_at,omitempty"`
}

// QualifyRequest asks the RAG service to qualify a lead from its
// conversation history
type QualifyRequest struct {
	SessionID           string          `json:"session_id"`
	ConversationHistory []Turn          `json:"conversation_history"`
	Metadata            QualifyMetadata `json:"metadata"`
}

// Qualification is the structured lead assessment produced by the RAG
// service (or by the rule-based fallback when the service is down)
type Qualification struct {
	Intent                 string   `json:"intent,omitempty"`
	Urgency                string   `json:"urgency,omitempty"`
	BudgetSignal           string   `json:"budget_signal,omitempty"`
	CompanySize            string   `json:"company_size,omitempty"`
	Industry               string   `json:"industry,omitempty"`
	CompanyName            string   `json:"company_name,omitempty"`
	TechnologyInterests    []string `json:"technology_interests,omitempty"`
	PainPoints             []string `json:"pain_points,omitempty"`
	UseCases               []string `json:"use_cases,omitempty"`
	DecisionMakerLevel     string   `json:"decision_maker_level,omitempty"`
	GeographicRegion       string   `json:"geographic_region,omitempty"`
	Timezone               string   `json:"timezone,omitempty"`
	LeadScore              int      `json:"lead_score"`
	SalesReady             bool     `json:"sales_ready"`
	Notes                  string   `json:"notes,omitempty"`
	ConversationQuality    int      `json:"conversation_quality,omitempty"`
	FollowUpPriority       string   `json:"follow_up_priority,omitempty"`
	ModelConfidence        float64  `json:"model_confidence,omitempty"`
	QualificationTimestamp string   `json:"qualification_timestamp,omitempty"`
}

// QualifyResponse wraps a qualification result
type QualifyResponse struct {
	Success        bool           `json:"success"`
	SessionID      string         `json:"session_id,omitempty"`
	Qualification  *Qualification `json:"qualification,omitempty"`
	ProcessingTime float64        `json:"processing_time,omitempty"`
}

// ConversationResponse is the service-side history for a session
type ConversationResponse struct {
	SessionID           string `json:"session_id"`
	ConversationHistory []Turn `json:"conversation_history"`
}

// AssistantMessageRequest is the payload forwarded to the chatbot
// assistant service
type AssistantMessageRequest struct {
	Message   string                 `json:"message"`
	SessionID string                 `json:"session_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// AssistantMessageResponse is the assistant's reply to a widget message
type AssistantMessageResponse struct {
	Response          string                 `json:"response"`
	SessionID         string                 `json:"session_id,omitempty"`
	Suggestions       []string               `json:"suggestions,omitempty"`
	LeadQualification map[string]interface{} `json:"lead_qualification,omitempty"`
	Confidence        float64                `json:"confidence,omitempty"`
	ProcessingTime    float64                `json:"processing_time,omitempty"`
	Sources           []string               `json:"sources,omitempty"`
	Timestamp         string                 `json:"timestamp,omitempty"`
}
