package model

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationApproved  RegistrationStatus = "APPROVED"
	RegistrationRejected  RegistrationStatus = "REJECTED"
	RegistrationCompleted RegistrationStatus = "COMPLETED"
)

// Registration links a volunteer to an event. At most one row per
// (event, volunteer) pair; the unique index backstops the service checks.
type Registration struct {
	ID              uint64             `gorm:"primaryKey"`
	EventID         uint64             `gorm:"not null;index;uniqueIndex:uk_event_volunteer"`
	Event           *Event             `gorm:"foreignKey:EventID"`
	VolunteerID     uint64             `gorm:"not null;index;uniqueIndex:uk_event_volunteer"`
	Volunteer       *User              `gorm:"foreignKey:VolunteerID"`
	Status          RegistrationStatus `gorm:"size:16;not null;default:'PENDING'"`
	RegisteredAt    time.Time          `gorm:"not null"`
	RejectionReason string             `gorm:"size:500"`
	Rating          *int               // 1..5, write-once after COMPLETED
	Feedback        string             `gorm:"size:1000"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Registration) TableName() string {
	return "event_participants"
}
