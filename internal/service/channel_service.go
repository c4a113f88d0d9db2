package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository/mysql"
	"volunteerhub/internal/repository/redis"
)

// ChannelAccess is what the gate computed for one user on one event at one
// point in time. It is never cached across requests: a rejected
// registration takes effect on the next call.
type ChannelAccess struct {
	Read     bool `json:"read"`
	Post     bool `json:"post"`
	Comment  bool `json:"comment"`
	Moderate bool `json:"moderate"`
}

// LikeCache is an optional read-through cache for post like counts.
type LikeCache interface {
	GetCount(ctx context.Context, postID uint64) (int64, bool, error)
	SetCount(ctx context.Context, postID uint64, cnt int64) error
	Invalidate(ctx context.Context, postID uint64) error
}

// CacheLock guards cache rebuilds so a hot post is recounted once, not by
// every concurrent reader.
type CacheLock interface {
	Acquire(ctx context.Context, postID uint64, token string) (bool, error)
	Release(ctx context.Context, postID uint64, token string) error
}

type ChannelService struct {
	channels *mysql.ChannelRepository
	posts    *mysql.PostRepository
	regs     *mysql.RegistrationRepository
	likes    LikeCache
	lock     CacheLock
	log      *zap.Logger
}

func NewChannelService(db *gorm.DB, log *zap.Logger) *ChannelService {
	return &ChannelService{
		channels: &mysql.ChannelRepository{DB: db},
		posts:    &mysql.PostRepository{DB: db},
		regs:     &mysql.RegistrationRepository{DB: db},
		log:      log,
	}
}

// WithLikeCache attaches the optional like-count cache and its rebuild
// lock. Without it every count is a direct database read.
func (s *ChannelService) WithLikeCache(cache LikeCache, lock CacheLock) *ChannelService {
	s.likes = cache
	s.lock = lock
	return s
}

// access recomputes the gate from current state. Membership means an
// APPROVED registration; pending or rejected confer nothing. A completed
// event still reads as APPROVED in storage and its channel stays open, so
// participants can keep talking after the event ends.
func (s *ChannelService) access(userID uint64, event *model.Event, now time.Time) (ChannelAccess, error) {
	if event == nil {
		return ChannelAccess{}, nil
	}
	switch event.EffectiveStatus(now) {
	case model.EventApproved, model.EventCompleted:
	default:
		return ChannelAccess{}, nil
	}
	if event.OrganizerID == userID {
		return ChannelAccess{Read: true, Post: true, Comment: true, Moderate: true}, nil
	}
	member, err := s.regs.HasApprovedRegistration(event.ID, userID)
	if err != nil {
		return ChannelAccess{}, apperr.Dependency("failed to check membership", err)
	}
	if !member {
		return ChannelAccess{}, nil
	}
	return ChannelAccess{Read: true, Post: true, Comment: true}, nil
}

type ChannelView struct {
	Channel *model.CommunicationChannel `json:"channel"`
	Access  ChannelAccess               `json:"access"`
}

// GetEventChannel resolves the event's channel for a user who may read it.
func (s *ChannelService) GetEventChannel(userID, eventID uint64) (*ChannelView, error) {
	ch, err := s.channels.FindByEventID(eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("channel not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load channel", err)
	}

	full, err := s.channels.FindByID(ch.ID)
	if err != nil {
		return nil, apperr.Dependency("failed to load channel", err)
	}
	acc, err := s.access(userID, full.Event, time.Now())
	if err != nil {
		return nil, err
	}
	if !acc.Read {
		return nil, apperr.Forbidden("no access to this channel")
	}
	return &ChannelView{Channel: full, Access: acc}, nil
}

type PostView struct {
	Post      model.ChannelPost   `json:"post"`
	Comments  []model.PostComment `json:"comments"`
	LikeCount int64               `json:"like_count"`
	Liked     bool                `json:"liked"`
}

func (s *ChannelService) ListPosts(ctx context.Context, userID, channelID uint64, page, size int) ([]PostView, int64, error) {
	ch, err := s.channels.FindByID(channelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, apperr.NotFound("channel not found")
	}
	if err != nil {
		return nil, 0, apperr.Dependency("failed to load channel", err)
	}
	acc, err := s.access(userID, ch.Event, time.Now())
	if err != nil {
		return nil, 0, err
	}
	if !acc.Read {
		return nil, 0, apperr.Forbidden("no access to this channel")
	}

	offset, limit := pageBounds(page, size)
	posts, total, err := s.posts.ListByChannel(channelID, offset, limit)
	if err != nil {
		return nil, 0, apperr.Dependency("failed to list posts", err)
	}

	out := make([]PostView, 0, len(posts))
	for i := range posts {
		comments, err := s.posts.ListComments(posts[i].ID)
		if err != nil {
			return nil, 0, apperr.Dependency("failed to list comments", err)
		}
		likes, err := s.likeCount(ctx, posts[i].ID)
		if err != nil {
			return nil, 0, err
		}
		liked, err := s.posts.IsLiked(posts[i].ID, userID)
		if err != nil {
			return nil, 0, apperr.Dependency("failed to check like", err)
		}
		out = append(out, PostView{Post: posts[i], Comments: comments, LikeCount: likes, Liked: liked})
	}
	return out, total, nil
}

func (s *ChannelService) CreatePost(userID, channelID uint64, content, imageURL string) (*model.ChannelPost, error) {
	var details []string
	if n := len([]rune(content)); n < 1 || n > 2000 {
		details = append(details, "content must be 1-2000 characters")
	}
	if len(imageURL) > 500 {
		details = append(details, "image url must be at most 500 characters")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid post", details...)
	}

	ch, err := s.channels.FindByID(channelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("channel not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load channel", err)
	}
	acc, err := s.access(userID, ch.Event, time.Now())
	if err != nil {
		return nil, err
	}
	if !acc.Post {
		return nil, apperr.Forbidden("no access to post in this channel")
	}

	post := &model.ChannelPost{ChannelID: channelID, AuthorID: userID, Content: content, ImageURL: imageURL}
	if err := s.posts.Create(post); err != nil {
		return nil, apperr.Dependency("failed to create post", err)
	}
	return post, nil
}

func (s *ChannelService) CreateComment(userID, postID uint64, content string) (*model.PostComment, error) {
	if n := len([]rune(content)); n < 1 || n > 500 {
		return nil, apperr.Validation("invalid comment", "content must be 1-500 characters")
	}

	post, acc, err := s.loadPostWithAccess(userID, postID)
	if err != nil {
		return nil, err
	}
	if !acc.Comment {
		return nil, apperr.Forbidden("no access to comment in this channel")
	}

	comment := &model.PostComment{PostID: post.ID, AuthorID: userID, Content: content}
	if err := s.posts.CreateComment(comment); err != nil {
		return nil, apperr.Dependency("failed to create comment", err)
	}
	return comment, nil
}

// ToggleLike flips the caller's like on a post and returns the new state.
func (s *ChannelService) ToggleLike(ctx context.Context, userID, postID uint64) (liked bool, count int64, err error) {
	_, acc, err := s.loadPostWithAccess(userID, postID)
	if err != nil {
		return false, 0, err
	}
	if !acc.Read {
		return false, 0, apperr.Forbidden("no access to this channel")
	}

	liked, count, err = s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return false, 0, apperr.Dependency("failed to toggle like", err)
	}
	if s.likes != nil {
		if cerr := s.likes.Invalidate(ctx, postID); cerr != nil {
			s.log.Warn("failed to invalidate like cache",
				zap.Uint64("post_id", postID), zap.Error(cerr))
		}
	}
	return liked, count, nil
}

// DeletePost is allowed to the author and to the channel moderator.
func (s *ChannelService) DeletePost(ctx context.Context, userID, postID uint64) error {
	post, acc, err := s.loadPostWithAccess(userID, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID && !acc.Moderate {
		return apperr.Forbidden("only the author or the organizer can delete a post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return apperr.Dependency("failed to delete post", err)
	}
	if s.likes != nil {
		_ = s.likes.Invalidate(ctx, postID)
	}
	return nil
}

func (s *ChannelService) loadPostWithAccess(userID, postID uint64) (*model.ChannelPost, ChannelAccess, error) {
	post, err := s.posts.FindByID(postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ChannelAccess{}, apperr.NotFound("post not found")
	}
	if err != nil {
		return nil, ChannelAccess{}, apperr.Dependency("failed to load post", err)
	}
	var event *model.Event
	if post.Channel != nil {
		event = post.Channel.Event
	}
	acc, err := s.access(userID, event, time.Now())
	if err != nil {
		return nil, ChannelAccess{}, err
	}
	return post, acc, nil
}

// likeCount reads through the cache when one is attached. On a miss a
// short lock elects one rebuilder; losers fall back to a direct count.
func (s *ChannelService) likeCount(ctx context.Context, postID uint64) (int64, error) {
	if s.likes == nil {
		n, err := s.posts.LikeCount(postID)
		if err != nil {
			return 0, apperr.Dependency("failed to count likes", err)
		}
		return n, nil
	}

	if n, ok, err := s.likes.GetCount(ctx, postID); err == nil && ok {
		return n, nil
	}

	token := uuid.NewString()
	if s.lock != nil {
		if got, _ := s.lock.Acquire(ctx, postID, token); got {
			defer func() { _ = s.lock.Release(ctx, postID, token) }()
		}
	}
	n, err := s.posts.LikeCount(postID)
	if err != nil {
		return 0, apperr.Dependency("failed to count likes", err)
	}
	if cerr := s.likes.SetCount(ctx, postID, n); cerr != nil {
		s.log.Warn("failed to fill like cache", zap.Uint64("post_id", postID), zap.Error(cerr))
	}
	return n, nil
}

var _ LikeCache = (*redis.LikeCacheRepository)(nil)
var _ CacheLock = (*redis.DistLock)(nil)
