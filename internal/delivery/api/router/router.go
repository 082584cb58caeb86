// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"agency/config"
	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/router/handler"
	"agency/internal/delivery/live"
	"agency/internal/domain/entity"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// UploadPath is the only route allowed past the default request body limit.
const UploadPath = "/api/v1/files"

type RouterParams struct {
	fx.In

	SessionHandler      *handler.SessionHandler
	ProfileHandler      *handler.ProfileHandler
	RecordHandler       *handler.RecordHandler
	NotificationHandler *handler.NotificationHandler
	FileHandler         *handler.FileHandler
	LiveHandler         *live.Handler
	AuthMiddleware      *middleware.AuthMiddleware
	Gatherer            prometheus.Gatherer
	Config              *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	sessionHandler      *handler.SessionHandler
	profileHandler      *handler.ProfileHandler
	recordHandler       *handler.RecordHandler
	notificationHandler *handler.NotificationHandler
	fileHandler         *handler.FileHandler
	liveHandler         *live.Handler
	authMiddleware      *middleware.AuthMiddleware
	gatherer            prometheus.Gatherer
	config              *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		sessionHandler:      params.SessionHandler,
		profileHandler:      params.ProfileHandler,
		recordHandler:       params.RecordHandler,
		notificationHandler: params.NotificationHandler,
		fileHandler:         params.FileHandler,
		liveHandler:         params.LiveHandler,
		authMiddleware:      params.AuthMiddleware,
		gatherer:            params.Gatherer,
		config:              params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	// Password sign-in, only served by the local identity provider
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/local/login", r.sessionHandler.PasswordLogin)
	}

	apiV1 := e.Group("/api/v1")

	// The live endpoint authenticates through its own auth frame
	apiV1.GET("/live", r.liveHandler.Serve)

	// Session routes need an identity but not yet a profile
	sessionGroup := apiV1.Group("/session", r.authMiddleware.Authenticate)
	{
		sessionGroup.GET("", r.sessionHandler.Current)
		sessionGroup.POST("", r.sessionHandler.SignIn)
	}

	// Everything else needs an active profile
	member := apiV1.Group("", r.authMiddleware.Authenticate, r.authMiddleware.RequireProfile)

	meGroup := member.Group("/me")
	{
		meGroup.POST("/push-tokens", r.profileHandler.RegisterPushToken)
		meGroup.DELETE("/push-tokens", r.profileHandler.UnregisterPushToken)
	}

	adminGroup := member.Group("/admin", r.authMiddleware.RequireRole(entity.RoleAdmin))
	{
		adminGroup.GET("/profiles", r.profileHandler.List)
		adminGroup.GET("/profiles/:id", r.profileHandler.Get)
		adminGroup.PATCH("/profiles/:id", r.profileHandler.Update)
		adminGroup.GET("/profiles/:id/portal-qr", r.profileHandler.PortalQR)
	}

	recordsGroup := member.Group("/records/:collection")
	{
		recordsGroup.GET("", r.recordHandler.List)
		recordsGroup.POST("", r.recordHandler.Create)
		recordsGroup.GET("/:id", r.recordHandler.Get)
		recordsGroup.PATCH("/:id", r.recordHandler.Update)
		recordsGroup.DELETE("/:id", r.recordHandler.Delete)
		recordsGroup.GET("/:id/comments", r.recordHandler.ListComments)
		recordsGroup.POST("/:id/comments", r.recordHandler.AddComment)
	}

	notificationsGroup := member.Group("/notifications")
	{
		notificationsGroup.GET("", r.notificationHandler.List)
		notificationsGroup.POST("/read-all", r.notificationHandler.MarkAllRead)
		notificationsGroup.POST("/:id/read", r.notificationHandler.MarkRead)
	}

	member.POST("/files", r.fileHandler.Upload, echomiddleware.BodyLimit(r.config.HTTP.MaxUploadBodySize))
}
