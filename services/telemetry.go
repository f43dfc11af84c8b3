package services

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/braingentech/site-api/model"
)

// AnalyticsRecorder persists chat traffic into Postgres for the analytics
// dashboard. It implements TelemetrySink.
type AnalyticsRecorder struct {
	db *gorm.DB
}

// NewAnalyticsRecorder creates a recorder over the given database handle
func NewAnalyticsRecorder(db *gorm.DB) *AnalyticsRecorder {
	return &AnalyticsRecorder{db: db}
}

// RecordChatTurn upserts the conversation row, bumps its message count by
// two, and inserts the user and assistant messages
func (r *AnalyticsRecorder) RecordChatTurn(ctx context.Context, record ChatTurnRecord) error {
	now := time.Now().UTC()
	startedAt := now
	if !record.Session.SessionStart.IsZero() {
		startedAt = record.Session.SessionStart.UTC()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversation := model.Conversation{
			SessionID: record.SessionID,
			UserIP:    record.Session.IP,
			UserAgent: record.Session.UserAgent,
			Referrer:  record.Session.Referrer,
			Metadata: model.JSONMap{
				"pages_visited": record.Session.PagesVisited,
				"session_start": startedAt.Format(time.RFC3339),
			},
			StartedAt:      startedAt,
			LastActivityAt: now,
			IsActive:       true,
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"user_ip":          conversation.UserIP,
				"user_agent":       conversation.UserAgent,
				"referrer":         conversation.Referrer,
				"last_activity_at": now,
				"is_active":        true,
				"updated_at":       now,
			}),
		}).Create(&conversation).Error
		if err != nil {
			return err
		}

		// one exchange = user message + assistant response
		err = tx.Model(&model.Conversation{}).
			Where("session_id = ?", record.SessionID).
			UpdateColumn("message_count", gorm.Expr("message_count + ?", 2)).Error
		if err != nil {
			return err
		}

		messages := []model.Message{
			{
				SessionID: record.SessionID,
				MessageID: record.UserMessageID,
				Role:      model.MessageRoleUser,
				Content:   record.UserMessage,
				Metadata: model.JSONMap{
					"ip_address": record.Session.IP,
					"user_agent": record.Session.UserAgent,
					"timestamp":  now.Format(time.RFC3339),
				},
				SentAt: now,
			},
			{
				SessionID: record.SessionID,
				MessageID: record.AssistantMessageID,
				Role:      model.MessageRoleAssistant,
				Content:   record.Answer,
				Metadata: model.JSONMap{
					"sources":             record.Sources,
					"processing_time":     record.ProcessingTime,
					"conversation_length": record.ConversationLength,
					"timestamp":           now.Format(time.RFC3339),
				},
				SentAt: now,
			},
		}

		return tx.Create(&messages).Error
	})
}
