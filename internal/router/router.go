package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteerhub/internal/handler"
	"volunteerhub/internal/middleware"
	"volunteerhub/internal/model"
	"volunteerhub/internal/policy"
	"volunteerhub/internal/service"
)

// Deps carries the shared infrastructure the routes are built on. Optional
// collaborators may be nil; the affected features degrade gracefully.
type Deps struct {
	DB  *gorm.DB
	Log *zap.Logger

	Sessions   service.SessionStore
	ResetCodes service.ResetCodeStore
	SendEmail  func(to, subject, htmlBody string) error

	Push      service.PushDeliverer
	Publisher service.EventPublisher
	LikeCache service.LikeCache
	CacheLock service.CacheLock
}

// Services bundles the constructed service layer so main can reuse it (the
// outbox relayer runs outside the router).
type Services struct {
	Auth          *service.AuthService
	Events        *service.EventService
	Registrations *service.RegistrationService
	Channels      *service.ChannelService
	Notifications *service.NotificationService
	Admin         *service.AdminService
}

func BuildServices(d Deps) *Services {
	channels := service.NewChannelService(d.DB, d.Log)
	if d.LikeCache != nil {
		channels = channels.WithLikeCache(d.LikeCache, d.CacheLock)
	}
	return &Services{
		Auth: service.NewAuthService(d.DB, d.Log, service.AuthDeps{
			Sessions:   d.Sessions,
			ResetCodes: d.ResetCodes,
			SendEmail:  d.SendEmail,
		}),
		Events:        service.NewEventService(d.DB, d.Log),
		Registrations: service.NewRegistrationService(d.DB, d.Log),
		Channels:      channels,
		Notifications: service.NewNotificationService(d.DB, d.Push, d.Publisher, d.Log),
		Admin:         service.NewAdminService(d.DB, d.Log),
	}
}

func InitRouter(d Deps, svcs *Services) *gin.Engine {
	r := gin.Default()

	auth := handler.NewAuthHandler(svcs.Auth)
	events := handler.NewEventHandler(svcs.Events)
	admin := handler.NewAdminHandler(svcs.Events, svcs.Auth, svcs.Admin)
	regs := handler.NewRegistrationHandler(svcs.Registrations)
	channels := handler.NewChannelHandler(svcs.Channels)
	notifications := handler.NewNotificationHandler(svcs.Notifications)

	var sessions middleware.SessionChecker
	if d.Sessions != nil {
		sessions = d.Sessions
	}
	authed := middleware.Auth(d.DB, sessions)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/forgot-password", auth.ForgotPassword)
		authGroup.POST("/verify-reset-code", auth.VerifyResetCode)
		authGroup.POST("/reset-password", auth.ResetPassword)
	}

	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", auth.Refresh)
	}

	meGroup := r.Group("/api/me", authed)
	{
		meGroup.GET("", auth.Profile)
		meGroup.PATCH("", auth.UpdateProfile)
		meGroup.POST("/logout", auth.Logout)
		meGroup.POST("/change-password", auth.ChangePassword)
		meGroup.GET("/dashboard", admin.Dashboard)
	}

	eventGroup := r.Group("/api/events", authed)
	{
		eventGroup.GET("", events.Browse)
		eventGroup.GET("/categories", events.Categories)
		eventGroup.GET("/:id", events.Get)
		eventGroup.GET("/:id/channel", channels.GetEventChannel)

		eventGroup.POST("",
			middleware.RequireRoles(policy.RolesFor(policy.OpSubmitEvent)...),
			events.Submit)
		eventGroup.GET("/mine",
			middleware.RequireRoles(model.RoleOrganizer, model.RoleAdmin),
			events.MyEvents)

		eventGroup.POST("/:id/registrations",
			middleware.RequireRoles(policy.RolesFor(policy.OpRegister)...),
			regs.Register)
		eventGroup.GET("/:id/registrations",
			middleware.RequireRoles(policy.RolesFor(policy.OpDecideRegistration)...),
			regs.EventRegistrations)
	}

	regGroup := r.Group("/api/registrations", authed)
	{
		regGroup.GET("/mine",
			middleware.RequireRoles(model.RoleVolunteer),
			regs.MyRegistrations)
		regGroup.GET("/:id", regs.Get)
		regGroup.POST("/:id/decision",
			middleware.RequireRoles(policy.RolesFor(policy.OpDecideRegistration)...),
			regs.Decide)
		regGroup.POST("/:id/complete",
			middleware.RequireRoles(policy.RolesFor(policy.OpDecideRegistration)...),
			regs.Complete)
		regGroup.POST("/:id/rating",
			middleware.RequireRoles(model.RoleVolunteer),
			regs.Rate)
	}

	channelGroup := r.Group("/api/channels", authed)
	{
		channelGroup.GET("/:id/posts", channels.ListPosts)
		channelGroup.POST("/:id/posts", channels.CreatePost)
	}

	postGroup := r.Group("/api/posts", authed)
	{
		postGroup.POST("/:id/comments", channels.CreateComment)
		postGroup.POST("/:id/like", channels.ToggleLike)
		postGroup.DELETE("/:id", channels.DeletePost)
	}

	notificationGroup := r.Group("/api/notifications", authed)
	{
		notificationGroup.GET("/vapid-public-key", notifications.PublicKey)
		notificationGroup.POST("/subscriptions", notifications.Subscribe)
		notificationGroup.DELETE("/subscriptions", notifications.Unsubscribe)
		notificationGroup.GET("/subscriptions/status", notifications.Status)
		notificationGroup.GET("/history", notifications.History)
	}

	adminGroup := r.Group("/api/admin", authed)
	{
		adminGroup.GET("/events/pending",
			middleware.RequireCapability(policy.OpListPendingEvents),
			admin.ListPending)
		adminGroup.POST("/events/:id/decision",
			middleware.RequireCapability(policy.OpDecideEvent),
			admin.DecideEvent)
		adminGroup.POST("/events/decisions",
			middleware.RequireCapability(policy.OpDecideEvent),
			admin.DecideEventsBulk)
		adminGroup.GET("/events/history",
			middleware.RequireCapability(policy.OpListApprovalHistory),
			admin.History)
		adminGroup.POST("/users",
			middleware.RequireCapability(policy.OpCreatePrivileged),
			admin.CreateUser)
		adminGroup.GET("/export/events",
			middleware.RequireCapability(policy.OpExportData),
			admin.ExportEvents)
		adminGroup.GET("/export/volunteers",
			middleware.RequireCapability(policy.OpExportData),
			admin.ExportVolunteers)
	}

	return r
}
