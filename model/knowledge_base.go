package model

import (
	"time"
)

// KnowledgeBase holds the curated Q&A corpus the external RAG service indexes.
// The API owns the table schema; retrieval itself happens upstream.
type KnowledgeBase struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Category  string      `gorm:"type:varchar(100);index;not null" json:"category"` // faq, qualification, objection
	Question  string      `gorm:"type:text;not null" json:"question"`
	Answer    string      `gorm:"type:text;not null" json:"answer"`
	Keywords  StringArray `gorm:"type:jsonb" json:"keywords,omitempty"`
	Context   JSONMap     `gorm:"type:jsonb" json:"context,omitempty"`
	Embedding []byte      `gorm:"type:bytea" json:"-"`
	Priority  int         `gorm:"default:1;index" json:"priority"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName specifies the table name for KnowledgeBase
func (KnowledgeBase) TableName() string {
	return "knowledge_base"
}
