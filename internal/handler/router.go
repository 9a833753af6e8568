package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/service"
)

type Services struct {
	Auth        *service.AuthService
	Users       *service.UserService
	Groups      *service.GroupService
	Permissions *service.PermissionService
}

// NewRouter wires every route under /api/v1 plus the health and docs
// endpoints.
func NewRouter(cfg config.HTTPConfig, svcs Services, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		Recovery(logger),
		RequestLogger(logger),
		CORSMiddleware(cfg.AllowedOrigins, false),
	)

	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/swagger/doc.json", OpenAPIDoc)

	requireAuth := AuthMiddleware(svcs.Auth)
	api := router.Group("/api/v1")

	authHandler := NewAuthHandler(svcs.Auth, cfg.PublicBaseURL)
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh-token", authHandler.Refresh)
	auth.POST("/register", authHandler.Register)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password/:uidb64/:token", authHandler.ResetPasswordWithToken)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.POST("/reset-password", requireAuth, authHandler.ResetPassword)
	auth.GET("/me", requireAuth, authHandler.Me)

	NewUserHandler(svcs.Users).Mount(api.Group("/users", requireAuth))
	NewGroupHandler(svcs.Groups).Mount(api.Group("/groups", requireAuth))
	NewResourceHandler[model.Permission, model.PermissionInput](svcs.Permissions, permissionFilters).
		Mount(api.Group("/permissions", requireAuth))

	return router
}
