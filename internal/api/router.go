package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/api/handler"
	"github.com/qs3c/fit_go_server/internal/api/middleware"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	planHandler      *handler.PlanHandler
	websocketHandler *handler.WebSocketHandler
	poseHandler      *handler.PoseHandler
	sessions         *session.Store
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	planHandler *handler.PlanHandler,
	websocketHandler *handler.WebSocketHandler,
	poseHandler *handler.PoseHandler,
	sessions *session.Store,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		planHandler:      planHandler,
		websocketHandler: websocketHandler,
		poseHandler:      poseHandler,
		sessions:         sessions,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	api.Use(middleware.Session(r.sessions, r.cfg.Session))
	api.Use(middleware.RequestLogger())
	{
		// WebSocket
		api.GET("/ws", middleware.RequireSession(), r.websocketHandler.Handle)
		api.GET("/ws/pose", r.poseHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.GET("/verify-email", r.authHandler.VerifyEmail)
			auth.POST("/resend-verification", r.authHandler.ResendVerification)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/logout", middleware.RequireSession(), r.authHandler.Logout)
			auth.POST("/forget-password", r.authHandler.ForgetPassword)
			auth.POST("/reset-password", r.authHandler.ResetPassword)
		}

		// 引导阶段即可访问
		api.POST("/onboarding", middleware.RequireSession(), r.authHandler.CompleteOnboarding)
		account := api.Group("/user", middleware.RequireSession())
		{
			account.POST("/password", r.userHandler.ChangePassword)
			account.POST("/delete", r.userHandler.DeleteAccount)
		}

		// 需要完成引导的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.RequireAuthenticated())
		{
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.POST("/profile", r.userHandler.UpdateProfile)
				user.POST("/workout-settings", r.userHandler.UpdateWorkoutSettings)
				user.POST("/username", r.userHandler.ChangeUsername)
				user.POST("/avatar", r.userHandler.UploadAvatar)
			}

			plans := authenticated.Group("/plans")
			{
				plans.POST("", r.planHandler.Generate)
				plans.GET("", r.planHandler.Get)
			}
		}
	}

	return engine
}
