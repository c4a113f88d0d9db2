package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"volunteerhub/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Event{},
		&model.Registration{},
		&model.CommunicationChannel{},
		&model.ChannelPost{},
		&model.PostComment{},
		&model.PostLike{},
		&model.PushSubscription{},
		&model.NotificationOutbox{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Email:     email,
		Password:  string(hash),
		Role:      role,
		FirstName: "Test",
		LastName:  "User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedEvent(t *testing.T, db *gorm.DB, organizerID uint64, status model.EventStatus, mutate ...func(*model.Event)) *model.Event {
	t.Helper()

	event := &model.Event{
		Title:       "Dọn rác bãi biển Đà Nẵng",
		Description: "Thu gom rác thải nhựa dọc bãi biển Mỹ Khê vào sáng chủ nhật.",
		Location:    "Bãi biển Mỹ Khê, Đà Nẵng",
		StartDate:   time.Now().Add(48 * time.Hour),
		EndDate:     time.Now().Add(72 * time.Hour),
		Category:    "Môi trường",
		Status:      status,
		OrganizerID: organizerID,
	}
	for _, m := range mutate {
		m(event)
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func seedRegistration(t *testing.T, db *gorm.DB, eventID, volunteerID uint64, status model.RegistrationStatus) *model.Registration {
	t.Helper()

	reg := &model.Registration{
		EventID:      eventID,
		VolunteerID:  volunteerID,
		Status:       status,
		RegisteredAt: time.Now(),
	}
	require.NoError(t, db.Create(reg).Error)
	return reg
}

func outboxCountFor(t *testing.T, db *gorm.DB, userID uint64, kind string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&model.NotificationOutbox{}).
		Where("target_user_id = ? AND kind = ?", userID, kind).
		Count(&n).Error)
	return n
}

func testLogger() *zap.Logger { return zap.NewNop() }

func intPtr(n int) *int { return &n }
