package model

import "time"

// Notification kinds carried in outbox payloads.
const (
	NotifyEventSubmitted     = "EVENT_SUBMITTED"
	NotifyEventStatusChange  = "EVENT_STATUS_CHANGE"
	NotifyNewRegistration    = "NEW_REGISTRATION"
	NotifyRegistrationStatus = "REGISTRATION_STATUS_CHANGE"
)

// PushSubscription is an opaque web-push endpoint bound to a user. A user
// may hold several (one per browser); permanently dead endpoints are removed
// by the dispatcher.
type PushSubscription struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"not null;index;uniqueIndex:uk_user_endpoint"`
	Endpoint  string `gorm:"size:500;not null;uniqueIndex:uk_user_endpoint,length:255"`
	P256dhKey string `gorm:"size:255;not null"`
	AuthKey   string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationOutbox rows are appended in the same transaction as the state
// change that triggers them, one row per target user. A relayer drains
// pending rows and dispatches best-effort; delivery never touches the
// triggering transaction.
type NotificationOutbox struct {
	ID           uint64 `gorm:"primaryKey"`
	Kind         string `gorm:"size:32;not null"`
	TargetUserID uint64 `gorm:"not null;index"`
	Title        string `gorm:"size:200;not null"`
	Body         string `gorm:"size:500;not null"`
	Payload      string `gorm:"type:json;not null"`
	Status       int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry        int    `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }
