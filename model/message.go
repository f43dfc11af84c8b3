package model

import (
	"time"
)

// MessageRole represents the role of the message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one chat turn half. Rows are immutable once written; every
// exchange inserts exactly two (one user, one assistant).
type Message struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	SessionID string      `gorm:"type:varchar(100);index:idx_messages_session_sent;not null" json:"session_id"`
	MessageID string      `gorm:"type:varchar(100);uniqueIndex;not null" json:"message_id"`
	Role      MessageRole `gorm:"type:varchar(20);index;not null" json:"role"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	// user messages carry ip/user-agent, assistant messages carry
	// sources and processing time
	Metadata  JSONMap   `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`
	SentAt    time.Time `gorm:"index:idx_messages_session_sent;not null" json:"sent_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "chat_messages"
}
