package model

import (
	"time"
)

// Conversation tracks one visitor chat session on the marketing site.
// One row per session token; every chat exchange refreshes last_activity_at
// and bumps message_count by two (user + assistant).
type Conversation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SessionID      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"session_id"`
	UserIP         string    `gorm:"type:varchar(45)" json:"user_ip"`
	UserAgent      string    `gorm:"type:text" json:"user_agent"`
	Referrer       string    `gorm:"type:varchar(255)" json:"referrer"`
	Metadata       JSONMap   `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`
	MessageCount   int       `gorm:"default:0" json:"message_count"`
	StartedAt      time.Time `gorm:"index;not null" json:"started_at"`
	LastActivityAt time.Time `gorm:"index;not null" json:"last_activity_at"`
	IsActive       bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName specifies the table name for Conversation
func (Conversation) TableName() string {
	return "chat_conversations"
}
