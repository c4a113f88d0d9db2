package mysql

import (
	"context"

	"volunteerhub/internal/model"

	"gorm.io/gorm"
)

type ChannelRepository struct {
	DB *gorm.DB
}

func (r *ChannelRepository) FindByEventID(eventID uint64) (*model.CommunicationChannel, error) {
	var ch model.CommunicationChannel
	err := r.DB.Where("event_id = ?", eventID).First(&ch).Error
	return &ch, err
}

func (r *ChannelRepository) FindByID(id uint64) (*model.CommunicationChannel, error) {
	var ch model.CommunicationChannel
	err := r.DB.Preload("Event").First(&ch, id).Error
	return &ch, err
}

type PostRepository struct {
	DB *gorm.DB
}

func (r *PostRepository) Create(post *model.ChannelPost) error {
	return r.DB.Create(post).Error
}

// FindByID loads the post with its channel and parent event so access can
// be re-derived from current state on every call.
func (r *PostRepository) FindByID(id uint64) (*model.ChannelPost, error) {
	var post model.ChannelPost
	err := r.DB.Preload("Channel").Preload("Channel.Event").Preload("Author").First(&post, id).Error
	return &post, err
}

func (r *PostRepository) ListByChannel(channelID uint64, offset, limit int) ([]model.ChannelPost, int64, error) {
	var total int64
	if err := r.DB.Model(&model.ChannelPost{}).Where("channel_id = ?", channelID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.ChannelPost
	err := r.DB.Preload("Author").
		Where("channel_id = ?", channelID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}

// Delete removes the post and its dependents in one transaction; there is
// no soft-delete on channel content.
func (r *PostRepository) Delete(ctx context.Context, postID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&model.PostComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&model.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChannelPost{}, postID).Error
	})
}

func (r *PostRepository) CreateComment(comment *model.PostComment) error {
	return r.DB.Create(comment).Error
}

func (r *PostRepository) ListComments(postID uint64) ([]model.PostComment, error) {
	var list []model.PostComment
	err := r.DB.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ToggleLike flips the like for (post, user) and reports the resulting
// state plus the fresh count. Existence-only toggle semantics.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID uint64) (liked bool, count int64, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&model.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
				if isDuplicateKey(err) {
					// concurrent like won; treat as already liked
					liked = true
					return nil
				}
				return err
			}
			liked = true
		}
		return tx.Model(&model.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	})
	return liked, count, err
}

func (r *PostRepository) IsLiked(postID, userID uint64) (bool, error) {
	var n int64
	err := r.DB.Model(&model.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *PostRepository) LikeCount(postID uint64) (int64, error) {
	var n int64
	err := r.DB.Model(&model.PostLike{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}
