package mysql

import (
	"volunteerhub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

// Upsert keeps one row per (user, endpoint), refreshing the keys when the
// browser re-subscribes with the same endpoint.
func (r *SubscriptionRepository) Upsert(sub *model.PushSubscription) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh_key", "auth_key", "updated_at"}),
	}).Create(sub).Error
}

func (r *SubscriptionRepository) Delete(userID uint64, endpoint string) error {
	return r.DB.Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&model.PushSubscription{}).Error
}

func (r *SubscriptionRepository) DeleteByID(id uint64) error {
	return r.DB.Delete(&model.PushSubscription{}, id).Error
}

func (r *SubscriptionRepository) ListByUser(userID uint64) ([]model.PushSubscription, error) {
	var list []model.PushSubscription
	err := r.DB.Where("user_id = ?", userID).Find(&list).Error
	return list, err
}

func (r *SubscriptionRepository) CountByUser(userID uint64) (int64, error) {
	var n int64
	err := r.DB.Model(&model.PushSubscription{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
