package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/sepiri/certhub-api/api/swagger"
	"github.com/sepiri/certhub-api/internal/handler"
	"github.com/sepiri/certhub-api/internal/repository"
	"github.com/sepiri/certhub-api/internal/router"
	"github.com/sepiri/certhub-api/internal/service"
	"github.com/sepiri/certhub-api/internal/template"
	"github.com/sepiri/certhub-api/pkg/cache"
	"github.com/sepiri/certhub-api/pkg/config"
	"github.com/sepiri/certhub-api/pkg/database"
	"github.com/sepiri/certhub-api/pkg/limiter"
	"github.com/sepiri/certhub-api/pkg/logger"
	"github.com/sepiri/certhub-api/pkg/mailer"
	"github.com/sepiri/certhub-api/pkg/pdf"
	"github.com/sepiri/certhub-api/pkg/storage"
)

// @title CertHub API
// @version 1.0.0
// @description Certificate issuance and verification backend
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	certRepo := buildCertificateRepository(cfg, db, logr)
	instRepo := repository.NewInstituteRepository(db)
	userRepo := repository.NewUserRepository(db)

	validate := validator.New()

	certTmpl, err := template.NewCertificateRenderer(cfg.Certificate)
	if err != nil {
		logr.Fatal("failed to parse certificate template", zap.Error(err))
	}
	emailTmpl, err := template.NewEmailRenderer(cfg.Certificate)
	if err != nil {
		logr.Fatal("failed to parse email template", zap.Error(err))
	}

	certStorage, err := storage.NewLocalStorage(cfg.Certificate.OutputDir)
	if err != nil {
		logr.Fatal("failed to prepare certificate storage", zap.Error(err))
	}
	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}

	pdfSlots := limiter.New(cfg.PDF.MaxConcurrent)
	pdfExporter := pdf.NewExporter(certStorage, pdfSlots, logr, cfg.Certificate.Width, cfg.Certificate.Height, cfg.PDF.Timeout)
	defer pdfExporter.Close()

	var mailClient *mailer.Mailer
	if cfg.SMTP.Configured() {
		mailSlots := limiter.New(cfg.SMTP.MaxConcurrent)
		mailClient, err = mailer.New(cfg.SMTP, mailSlots, logr)
		if err != nil {
			logr.Fatal("failed to configure mailer", zap.Error(err))
		}
	} else {
		logr.Warn("smtp not configured, certificates will be issued without email delivery")
	}

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "certhub-api",
	})
	certService := service.NewCertificateService(
		certRepo, instRepo, certTmpl, emailTmpl, pdfExporter, mailClient,
		metricsService, validate, logr, cfg.Programs, cfg.Certificate.ParticipantTimeout,
	)
	instService := service.NewInstituteService(instRepo, validate, logr)
	userService := service.NewUserService(userRepo, logr)

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportService := service.NewExportService(certRepo, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Certificate: handler.NewCertificateHandler(certService, exportService),
		Institute:   handler.NewInstituteHandler(instService),
		User:        handler.NewUserHandler(userService),
		Metrics:     handler.NewMetricsHandler(metricsService, db),
	}

	engine := router.New(cfg, logr, authService, metricsService, handlers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupExports(ctx, exportService, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// buildCertificateRepository attaches the optional Redis lookup cache.
func buildCertificateRepository(cfg *config.Config, db *sqlx.DB, logr *zap.Logger) *repository.CertificateRepository {
	if !cfg.LookupCache.Enabled {
		return repository.NewCertificateRepository(db, nil, 0, logr)
	}
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, serial lookups will hit the database", zap.Error(err))
		return repository.NewCertificateRepository(db, nil, 0, logr)
	}
	return repository.NewCertificateRepository(db, redisClient, cfg.LookupCache.TTL, logr)
}

// cleanupExports prunes expired registry export files hourly.
func cleanupExports(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
