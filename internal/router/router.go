package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/internal/handler"
	"github.com/sepiri/certhub-api/internal/middleware"
	"github.com/sepiri/certhub-api/internal/models"
	"github.com/sepiri/certhub-api/internal/service"
	"github.com/sepiri/certhub-api/pkg/config"
	"github.com/sepiri/certhub-api/pkg/logger"
	corsmiddleware "github.com/sepiri/certhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sepiri/certhub-api/pkg/middleware/requestid"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Certificate *handler.CertificateHandler
	Institute   *handler.InstituteHandler
	User        *handler.UserHandler
	Metrics     *handler.MetricsHandler
}

// New assembles the gin engine with middleware and all API routes.
func New(cfg *config.Config, logr *zap.Logger, authService *service.AuthService, metricsService *service.MetricsService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.New())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		protected := auth.Group("", middleware.JWT(authService))
		protected.GET("/me", h.Auth.Me)
		protected.PUT("/profile", h.Auth.UpdateProfile)
		protected.PUT("/change-password", h.Auth.ChangePassword)
		protected.POST("/logout", h.Auth.Logout)
	}

	institutes := api.Group("/institutes", middleware.JWT(authService))
	{
		institutes.GET("", h.Institute.List)
		institutes.GET("/:id", h.Institute.Get)

		admin := institutes.Group("", middleware.RequireRoles(models.RoleAdmin))
		admin.POST("", h.Institute.Create)
		admin.PUT("/:id", h.Institute.Update)
		admin.DELETE("/:id", h.Institute.Delete)
	}

	users := api.Group("/users", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", h.User.List)
		users.POST("", h.Auth.Register)
		users.GET("/:id", h.User.Get)
		users.DELETE("/:id", h.User.Deactivate)
	}

	certificates := api.Group("/certificates")
	{
		certificates.POST("/generate", middleware.OptionalJWT(authService), h.Certificate.Generate)
		certificates.GET("", h.Certificate.List)
		certificates.GET("/programs/list", h.Certificate.Programs)
		certificates.GET("/smtp/test", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleOperator), h.Certificate.SMTPTest)
		certificates.GET("/export", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), h.Certificate.Export)
		certificates.GET("/export/download/:token", h.Certificate.ExportDownload)
		certificates.GET("/:serialNumber", h.Certificate.GetBySerial)
		certificates.GET("/:serialNumber/download", h.Certificate.Download)
	}

	return r
}
