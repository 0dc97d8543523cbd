package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdminActionLog is the append-only audit trail. BookingID is kept as a plain
// column so entries survive permanent deletion of the booking they describe.
type AdminActionLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ActorID      string         `gorm:"size:36;not null;index" json:"actor_id"`
	ActorName    string         `gorm:"size:255" json:"actor_name"`
	ActorType    string         `gorm:"size:20;not null" json:"actor_type"`
	TargetUserID *string        `gorm:"size:36;index" json:"target_user_id,omitempty"`
	BookingID    *string        `gorm:"size:36;index" json:"booking_id,omitempty"`
	Action       string         `gorm:"size:50;not null;index" json:"action"`
	Note         string         `gorm:"type:text" json:"note"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (AdminActionLog) TableName() string {
	return "admin_action_logs"
}

// OutboxEvent is written in the same transaction as the mutation it describes
// and relayed to the message broker afterwards.
type OutboxEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   string         `gorm:"size:64;not null;index" json:"event_type"`
	AggregateID string         `gorm:"size:36;not null;index" json:"aggregate_id"`
	Payload     datatypes.JSON `json:"payload"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   string         `gorm:"type:text" json:"last_error"`
	PublishedAt *time.Time     `gorm:"index" json:"published_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
