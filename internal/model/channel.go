package model

import "time"

// CommunicationChannel is the one-to-one discussion companion of an
// approved event. Created in the approval transaction, never separately.
type CommunicationChannel struct {
	ID        uint64 `gorm:"primaryKey"`
	EventID   uint64 `gorm:"not null;uniqueIndex"`
	Event     *Event `gorm:"foreignKey:EventID"`
	CreatedAt time.Time
}

func (CommunicationChannel) TableName() string {
	return "communication_channels"
}

type ChannelPost struct {
	ID        uint64                `gorm:"primaryKey"`
	ChannelID uint64                `gorm:"not null;index:idx_channel_time,priority:1"`
	Channel   *CommunicationChannel `gorm:"foreignKey:ChannelID"`
	AuthorID  uint64                `gorm:"not null;index"`
	Author    *User                 `gorm:"foreignKey:AuthorID"`
	Content   string                `gorm:"size:2000;not null"`
	ImageURL  string                `gorm:"size:500"`
	CreatedAt time.Time             `gorm:"index:idx_channel_time,priority:2,sort:desc"`
	UpdatedAt time.Time
}

type PostComment struct {
	ID        uint64       `gorm:"primaryKey"`
	PostID    uint64       `gorm:"not null;index"`
	Post      *ChannelPost `gorm:"foreignKey:PostID"`
	AuthorID  uint64       `gorm:"not null"`
	Author    *User        `gorm:"foreignKey:AuthorID"`
	Content   string       `gorm:"size:500;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PostLike struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	PostID    uint64 `gorm:"not null;index;uniqueIndex:uk_post_user"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_post_user"`
	CreatedAt time.Time
}

func (PostLike) TableName() string {
	return "post_likes"
}
