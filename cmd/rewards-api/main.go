package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/rewards-ledger-api/api/swagger"
	"github.com/noah-isme/rewards-ledger-api/internal/handler"
	internalmiddleware "github.com/noah-isme/rewards-ledger-api/internal/middleware"
	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/internal/repository"
	"github.com/noah-isme/rewards-ledger-api/internal/service"
	"github.com/noah-isme/rewards-ledger-api/pkg/cache"
	"github.com/noah-isme/rewards-ledger-api/pkg/config"
	"github.com/noah-isme/rewards-ledger-api/pkg/database"
	"github.com/noah-isme/rewards-ledger-api/pkg/keylock"
	"github.com/noah-isme/rewards-ledger-api/pkg/logger"
	"github.com/noah-isme/rewards-ledger-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/rewards-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/rewards-ledger-api/pkg/middleware/requestid"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

// @title Classroom Rewards Ledger API
// @version 1.0.0
// @description Student coin balances, badge purchases, experience levels and password resets over a tabular record store.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scopes, err := service.NewScopeRegistry(cfg.DefaultScope, cfg.Scopes)
	if err != nil {
		logr.Fatal("invalid scope configuration", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()

	backend, db, err := openStore(ctx, cfg, scopes.All())
	if err != nil {
		logr.Fatal("failed to open record store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}
	store := recordstore.NewResilient(backend, recordstore.ResilientConfig{
		CallTimeout:  cfg.Store.CallTimeout,
		ReadRetries:  cfg.Store.ReadRetries,
		RetryBackoff: cfg.Store.RetryBackoff,
		Observer:     metricsSvc.ObserveStoreCall,
		Logger:       logr,
	})

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	var cacheRepo service.CacheRepository
	var cacheRepository *repository.CacheRepository
	if redisClient != nil {
		cacheRepository = repository.NewCacheRepository(redisClient, "rewards")
		cacheRepo = cacheRepository
		defer cacheRepository.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.LeaderboardTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	sender, err := mailer.New(ctx, cfg.Mail, logr)
	if err != nil {
		logr.Fatal("failed to init mailer", zap.String("driver", cfg.Mail.Driver), zap.Error(err))
	}

	validate := service.NewValidator()
	locks := keylock.New()

	studentRepo := repository.NewStudentRepository(store)
	badgeRepo := repository.NewBadgeRepository(store)
	purchaseRepo := repository.NewPurchaseRepository(store)

	notifications := service.NewNotificationService(sender, metricsSvc, service.NotificationConfig{
		StudentDomain:   cfg.Mail.StudentDomain,
		AdminRecipients: cfg.Mail.AdminRecipients,
		Workers:         cfg.Mail.Workers,
		Retries:         cfg.Mail.Retries,
		RetryDelay:      cfg.Mail.RetryDelay,
	}, logr)
	studentSvc := service.NewStudentService(studentRepo, purchaseRepo, locks, cacheSvc, metricsSvc, validate, logr, cfg.Credentials.Mode)
	inventorySvc := service.NewInventoryService(badgeRepo, cacheSvc, cfg.Cache.BadgesTTL, logr)
	purchaseSvc := service.NewPurchaseService(studentSvc, inventorySvc, purchaseRepo, notifications, locks, metricsSvc, validate, logr, service.PurchaseConfig{
		MaxQuantity: cfg.Purchases.MaxQuantity,
	})
	leaderboardSvc := service.NewLeaderboardService(studentRepo, cacheSvc, cfg.Cache.LeaderboardTTL, logr)
	resetSvc := service.NewResetCodeService(studentSvc, notifications, metricsSvc, validate, logr, service.ResetCodeConfig{
		TTL:           cfg.Reset.CodeTTL,
		SweepInterval: cfg.Reset.SweepInterval,
	})
	authSvc := service.NewAuthService(studentSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	notifications.Start(ctx)
	resetSvc.Start(ctx)

	checks := map[string]handler.ReadinessCheck{
		"store": func(ctx context.Context) error {
			scope, err := scopes.Resolve("")
			if err != nil {
				return err
			}
			_, err = store.ReadRange(ctx, scope.Badges, "A1:A1")
			return err
		},
	}
	if cacheRepository != nil {
		checks["cache"] = cacheRepository.Ping
	}

	authHandler := handler.NewAuthHandler(authSvc, studentSvc, resetSvc, scopes)
	badgeHandler := handler.NewBadgeHandler(inventorySvc, scopes)
	purchaseHandler := handler.NewPurchaseHandler(purchaseSvc, scopes)
	adminHandler := handler.NewAdminHandler(studentSvc, purchaseSvc, scopes)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc, scopes)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, scopes))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/password-reset", authHandler.RequestPasswordReset)
	auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)

	api.GET("/badges", badgeHandler.List)
	api.GET("/leaderboard", leaderboardHandler.Rank)
	api.GET("/leaderboard/export", leaderboardHandler.Export)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.POST("/purchases", purchaseHandler.Purchase)

	admin := api.Group("/admin")
	admin.Use(internalmiddleware.AdminKey(cfg.Admin.APIKey))
	admin.POST("/purchases/:id/reverse", adminHandler.ReversePurchase)
	admin.POST("/students/:id/experience", adminHandler.AddExperience)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	resetSvc.Stop()
	notifications.Stop(shutdownCtx)
}

// openStore builds the configured gateway and makes sure every scope's
// collections exist with their header rows where the backend allows it.
func openStore(ctx context.Context, cfg *config.Config, scopes []models.Scope) (recordstore.Gateway, *sqlx.DB, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSheets:
		credentials := []byte(cfg.Store.CredentialsJSON)
		if len(credentials) == 0 && cfg.Store.CredentialsFile != "" {
			raw, err := os.ReadFile(cfg.Store.CredentialsFile)
			if err != nil {
				return nil, nil, fmt.Errorf("read service account: %w", err)
			}
			credentials = raw
		}
		store, err := recordstore.NewSheetsStore(ctx, cfg.Store.SpreadsheetID, credentials)
		return store, nil, err
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := recordstore.NewSQLStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate record store: %w", err)
		}
		for _, scope := range scopes {
			for collection, header := range collectionHeaders(scope) {
				if err := store.EnsureCollection(ctx, collection, header); err != nil {
					_ = db.Close()
					return nil, nil, fmt.Errorf("ensure collection: %w", err)
				}
			}
		}
		return store, db, nil
	default:
		store := recordstore.NewMemoryStore()
		for _, scope := range scopes {
			for collection, header := range collectionHeaders(scope) {
				store.EnsureCollection(collection, header)
			}
		}
		return store, nil, nil
	}
}

func collectionHeaders(scope models.Scope) map[string][]string {
	return map[string][]string{
		scope.Students:  scope.Layout.Header(),
		scope.Badges:    models.BadgeColumns,
		scope.Purchases: models.PurchaseColumns,
	}
}
