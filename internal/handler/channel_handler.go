package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/middleware"
	"volunteerhub/internal/model"
	"volunteerhub/internal/service"
)

type ChannelHandler struct {
	svc *service.ChannelService
}

func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{svc: svc}
}

type postView struct {
	ID        uint64        `json:"id"`
	ChannelID uint64        `json:"channel_id"`
	AuthorID  uint64        `json:"author_id"`
	Author    *userView     `json:"author,omitempty"`
	Content   string        `json:"content"`
	ImageURL  string        `json:"image_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Comments  []commentView `json:"comments,omitempty"`
	LikeCount int64         `json:"like_count"`
	Liked     bool          `json:"liked"`
}

type commentView struct {
	ID        uint64    `json:"id"`
	AuthorID  uint64    `json:"author_id"`
	Author    *userView `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentViews(list []model.PostComment) []commentView {
	out := make([]commentView, 0, len(list))
	for i := range list {
		cv := commentView{
			ID:        list[i].ID,
			AuthorID:  list[i].AuthorID,
			Content:   list[i].Content,
			CreatedAt: list[i].CreatedAt,
		}
		if list[i].Author != nil {
			uv := toUserView(list[i].Author)
			cv.Author = &uv
		}
		out = append(out, cv)
	}
	return out
}

// GetEventChannel resolves an event's channel plus the caller's access.
func (h *ChannelHandler) GetEventChannel(c *gin.Context) {
	eventID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	view, err := h.svc.GetEventChannel(user.ID, eventID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"channel": gin.H{
			"id":       view.Channel.ID,
			"event_id": view.Channel.EventID,
		},
		"access": view.Access,
	})
}

func (h *ChannelHandler) ListPosts(c *gin.Context) {
	channelID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	page, size := pageParams(c)
	posts, total, err := h.svc.ListPosts(c.Request.Context(), user.ID, channelID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := make([]postView, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		pv := postView{
			ID:        p.Post.ID,
			ChannelID: p.Post.ChannelID,
			AuthorID:  p.Post.AuthorID,
			Content:   p.Post.Content,
			ImageURL:  p.Post.ImageURL,
			CreatedAt: p.Post.CreatedAt,
			Comments:  toCommentViews(p.Comments),
			LikeCount: p.LikeCount,
			Liked:     p.Liked,
		}
		if p.Post.Author != nil {
			uv := toUserView(p.Post.Author)
			pv.Author = &uv
		}
		out = append(out, pv)
	}
	c.JSON(http.StatusOK, gin.H{"posts": out, "total": total})
}

func (h *ChannelHandler) CreatePost(c *gin.Context) {
	channelID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content  string `json:"content" binding:"required"`
		ImageURL string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}

	user := middleware.CurrentUser(c)
	post, err := h.svc.CreatePost(user.ID, channelID, req.Content, req.ImageURL)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": postView{
		ID:        post.ID,
		ChannelID: post.ChannelID,
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		ImageURL:  post.ImageURL,
		CreatedAt: post.CreatedAt,
	}})
}

func (h *ChannelHandler) CreateComment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}

	user := middleware.CurrentUser(c)
	comment, err := h.svc.CreateComment(user.ID, postID, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": commentView{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}})
}

func (h *ChannelHandler) ToggleLike(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	liked, count, err := h.svc.ToggleLike(c.Request.Context(), user.ID, postID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

func (h *ChannelHandler) DeletePost(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.svc.DeletePost(c.Request.Context(), user.ID, postID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}
