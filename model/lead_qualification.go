package model

import (
	"time"

	"gorm.io/datatypes"
)

// FollowUpPriority tiers for sales follow-up
type FollowUpPriority string

const (
	FollowUpLow    FollowUpPriority = "low"
	FollowUpMedium FollowUpPriority = "medium"
	FollowUpHigh   FollowUpPriority = "high"
	FollowUpUrgent FollowUpPriority = "urgent"
)

// LeadQualification is the durable qualification result for one session.
// One row per session; re-qualifying overwrites the scored fields while
// raw_qualification_data keeps the upstream payload verbatim.
type LeadQualification struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	SessionID            string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"session_id"`
	Intent               string           `gorm:"type:varchar(50);index" json:"intent"`
	Urgency              string           `gorm:"type:varchar(20)" json:"urgency"`
	CompanySize          string           `gorm:"type:varchar(20);index" json:"company_size"`
	Industry             string           `gorm:"type:varchar(100);index" json:"industry"`
	CompanyName          string           `gorm:"type:varchar(255)" json:"company_name"`
	TechnologyInterests  StringArray      `gorm:"type:jsonb" json:"technology_interests"`
	PainPoints           StringArray      `gorm:"type:jsonb" json:"pain_points"`
	UseCases             string           `gorm:"type:text" json:"use_cases"`
	DecisionMakerLevel   string           `gorm:"type:varchar(20)" json:"decision_maker_level"`
	GeographicRegion     string           `gorm:"type:varchar(100)" json:"geographic_region"`
	Timezone             string           `gorm:"type:varchar(50)" json:"timezone"`
	LeadScore            int              `gorm:"default:0;index:idx_leads_ready_score" json:"lead_score"`
	SalesReady           bool             `gorm:"default:false;index:idx_leads_ready_score" json:"sales_ready"`
	Notes                string           `gorm:"type:text" json:"notes"`
	ConversationQuality  int              `gorm:"default:5" json:"conversation_quality"`
	FollowUpPriority     FollowUpPriority `gorm:"type:varchar(20);default:'medium'" json:"follow_up_priority"`
	ModelConfidence      float64          `gorm:"default:0.5" json:"model_confidence"`
	QualifiedAt          time.Time        `gorm:"index;not null" json:"qualified_at"`
	RawQualificationData datatypes.JSON   `gorm:"type:jsonb" json:"raw_qualification_data,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// TableName specifies the table name for LeadQualification
func (LeadQualification) TableName() string {
	return "lead_qualifications"
}

// HighPriority reports whether this lead should hit the alerting log path
func (q *LeadQualification) HighPriority() bool {
	return q.LeadScore >= 80 || q.SalesReady
}
