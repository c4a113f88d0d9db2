package model

import "time"

type EventStatus string

const (
	EventPending  EventStatus = "PENDING"
	EventApproved EventStatus = "APPROVED"
	EventRejected EventStatus = "REJECTED"
	// EventCompleted is a projection, never stored: an approved event whose
	// end time has passed. See Event.EffectiveStatus.
	EventCompleted EventStatus = "COMPLETED"
)

// Categories the platform accepts for events.
var EventCategories = []string{
	"Môi trường",
	"Giáo dục",
	"Y tế",
	"Cộng đồng",
	"Từ thiện",
	"Cứu trợ thiên tai",
}

func ValidCategory(c string) bool {
	for _, v := range EventCategories {
		if v == c {
			return true
		}
	}
	return false
}

type Event struct {
	ID              uint64      `gorm:"primaryKey"`
	Title           string      `gorm:"size:200;not null"`
	Description     string      `gorm:"type:text;not null"`
	Location        string      `gorm:"size:500;not null"`
	StartDate       time.Time   `gorm:"not null;index"`
	EndDate         time.Time   `gorm:"not null"`
	Capacity        *int        `gorm:""` // nil = unbounded
	Category        string      `gorm:"size:64;not null"`
	Status          EventStatus `gorm:"size:16;not null;default:'PENDING';index"`
	OrganizerID     uint64      `gorm:"not null;index"`
	Organizer       *User       `gorm:"foreignKey:OrganizerID"`
	ApprovedByID    *uint64
	ApprovedBy      *User `gorm:"foreignKey:ApprovedByID"`
	ApprovedAt      *time.Time
	RejectionReason string `gorm:"size:500"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EffectiveStatus separates observed state from stored state: an approved
// event past its end time reads as COMPLETED without any stored transition.
func (e *Event) EffectiveStatus(now time.Time) EventStatus {
	if e.Status == EventApproved && now.After(e.EndDate) {
		return EventCompleted
	}
	return e.Status
}
