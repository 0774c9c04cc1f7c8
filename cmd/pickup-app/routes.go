package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/handler"
	"github.com/noah-isme/sma-pickup/internal/middleware"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/service"
	"github.com/noah-isme/sma-pickup/pkg/config"
	"github.com/noah-isme/sma-pickup/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-pickup/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-pickup/pkg/middleware/requestid"
)

type routeHandlers struct {
	app           *handler.AppHandler
	auth          *handler.AuthHandler
	navigation    *handler.NavigationHandler
	students      *handler.StudentHandler
	pickup        *handler.PickupHandler
	chat          *handler.ChatHandler
	notifications *handler.NotificationHandler
	metrics       *handler.MetricsHandler
}

type sessionSource interface {
	Current() *models.Session
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h routeHandlers, sessions sessionSource) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/app/state", h.app.State)

	onboarding := api.Group("/onboarding")
	onboarding.GET("", h.app.Onboarding)
	onboarding.POST("/next", h.app.NextSlide)
	onboarding.POST("/skip", h.app.SkipOnboarding)

	auth := api.Group("/auth")
	auth.GET("/session", h.auth.Session)
	auth.POST("/mode", h.auth.SetMode)
	auth.POST("/sign-up", h.auth.SignUp)
	auth.POST("/sign-in", h.auth.SignIn)
	auth.POST("/magic-link", h.auth.MagicLink)
	auth.GET("/callback", h.auth.Callback)
	auth.POST("/callback", h.auth.CompleteCallback)
	auth.GET("/user", middleware.RequireSession(sessions), h.auth.User)
	auth.POST("/sign-out", middleware.RequireSession(sessions), h.auth.SignOut)

	signedIn := api.Group("")
	signedIn.Use(middleware.RequireSession(sessions))

	nav := signedIn.Group("/navigation")
	nav.POST("/tab", h.navigation.SelectTab)
	nav.POST("/navigate", h.navigation.Navigate)
	nav.POST("/back", h.navigation.Back)

	teacherOnly := middleware.RequireRole(models.RoleTeacher)
	students := signedIn.Group("/students")
	students.GET("", h.students.List)
	students.POST("", h.students.Add)
	students.GET("/export", teacherOnly, h.students.Export)
	students.POST("/:id/toggle", teacherOnly, h.students.Toggle)
	students.POST("/:id/ready", teacherOnly, h.pickup.StudentReady)

	pickup := signedIn.Group("/pickup")
	pickup.GET("/status", h.pickup.Status)
	pickup.POST("/en-route", middleware.RequireRole(models.RoleParent), h.pickup.EnRoute)

	chats := signedIn.Group("/chats")
	chats.GET("", h.chat.List)
	chats.POST("/:id/open", h.chat.Open)
	chats.POST("/close", h.chat.Close)
	chats.PUT("/input", h.chat.Input)
	chats.POST("/send", h.chat.Send)
	chats.GET("/:id/messages", h.chat.Messages)

	signedIn.GET("/notifications", h.notifications.List)

	return r
}
