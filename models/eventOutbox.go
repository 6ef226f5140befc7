package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for PlanningEventRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// PlanningEventRecord is the transactional outbox row for a domain event.
// It is written inside the emitting workflow's DB transaction and published
// to Pub/Sub asynchronously by the outbox dispatcher after commit, so no
// external subscriber ever observes an event for a rolled-back planning run.
type PlanningEventRecord struct {
	ID               int               `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	TenantId         string            `gorm:"size:64;not null;index" json:"tenant_id"`
	EventType        PlanningEventType `gorm:"size:64;not null;index" json:"event_type"`
	OccurredAt       time.Time         `gorm:"index;not null" json:"occurred_at"`
	Payload          []byte            `gorm:"type:blob" json:"payload"`
	PublishStatus    string            `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time        `gorm:"index" json:"published_at"`
	PubSubMessageId  *string           `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int               `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time        `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time        `gorm:"index" json:"locked_at"`
	LockedBy         *string           `gorm:"size:100" json:"locked_by"`
	LastPublishError *string           `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string            `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishPlanningEvent writes the outbox record inside the caller's DB
// transaction but does NOT publish to Pub/Sub. Publishing is performed
// asynchronously by the outbox dispatcher after commit.
func PublishPlanningEvent(ctx context.Context, tx *gorm.DB, tenantId string, eventType PlanningEventType, payload interface{}) error {
	payloadInByte, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := PlanningEventRecord{
		TenantId:      tenantId,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		Payload:       payloadInByte,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToPlanningEventMessage(record PlanningEventRecord) config.PlanningEventMessage {
	return config.PlanningEventMessage{
		ID:            record.ID,
		TenantId:      record.TenantId,
		EventType:     string(record.EventType),
		OccurredAt:    record.OccurredAt,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}
