package model

import (
	"time"
)

// ConsultationRequestStatus lifecycle states for a sales consultation
type ConsultationRequestStatus string

const (
	ConsultationPending   ConsultationRequestStatus = "pending"
	ConsultationScheduled ConsultationRequestStatus = "scheduled"
	ConsultationCompleted ConsultationRequestStatus = "completed"
)

// ConsultationRequest is created automatically when a qualification marks a
// lead as high priority. One row per session.
type ConsultationRequest struct {
	ID          uint                      `gorm:"primaryKey" json:"id"`
	SessionID   string                    `gorm:"type:varchar(100);uniqueIndex;not null" json:"session_id"`
	Industry    string                    `gorm:"type:varchar(100)" json:"industry"`
	RequestType string                    `gorm:"type:varchar(30)" json:"request_type"` // consultation, demo, quote
	Status      ConsultationRequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Notes       string                    `gorm:"type:text" json:"notes"`
	RequestedAt time.Time                 `gorm:"index;not null" json:"requested_at"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// TableName specifies the table name for ConsultationRequest
func (ConsultationRequest) TableName() string {
	return "consultation_requests"
}
