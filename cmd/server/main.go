// server runs the GymDesk HTTP API: owner auth, member roster, membership
// payments, and the shared WhatsApp messaging session. On first boot (or
// after a remote logout) the login QR code is rendered to the terminal;
// scan it with the gym's WhatsApp account to link the session.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"go.uber.org/zap"

	"gymdesk/backend/internal/audit"
	auditrepo "gymdesk/backend/internal/audit/repository"
	"gymdesk/backend/internal/config"
	"gymdesk/backend/internal/db"
	"gymdesk/backend/internal/db/migrate"
	"gymdesk/backend/internal/devotp"
	"gymdesk/backend/internal/health"
	memberhandler "gymdesk/backend/internal/member/handler"
	memberrepo "gymdesk/backend/internal/member/repository"
	memberservice "gymdesk/backend/internal/member/service"
	membershiphandler "gymdesk/backend/internal/membership/handler"
	membershiprepo "gymdesk/backend/internal/membership/repository"
	membershipservice "gymdesk/backend/internal/membership/service"
	"gymdesk/backend/internal/messaging"
	"gymdesk/backend/internal/messaging/wa"
	"gymdesk/backend/internal/otp"
	ownerhandler "gymdesk/backend/internal/owner/handler"
	ownerrepo "gymdesk/backend/internal/owner/repository"
	ownerservice "gymdesk/backend/internal/owner/service"
	"gymdesk/backend/internal/policy/engine"
	policyrepo "gymdesk/backend/internal/policy/repository"
	"gymdesk/backend/internal/reminder"
	"gymdesk/backend/internal/security"
	"gymdesk/backend/internal/server"
	"gymdesk/backend/internal/server/middleware"
	"gymdesk/backend/internal/telemetry"
	"gymdesk/backend/internal/telemetry/otel"
	"gymdesk/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("migrate", zap.Error(err))
	}
	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer sqlDB.Close()

	redisClient, err := db.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer redisClient.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("jwt private key", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt public key", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := messaging.NewManager(
		wa.NewTransport(cfg.WAStorePath),
		messaging.NewFileStore(cfg.WACredentialsPath),
		messaging.RetryPolicy{Delay: cfg.ReconnectDelay(), MaxAttempts: cfg.WAMaxReconnects},
		cfg.WACountryPrefix,
		func(code string) {
			logger.Info("scan the QR code below with the gym's WhatsApp account")
			qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
		},
		logger,
	)
	if err := manager.Initialize(ctx); err != nil {
		// The API still serves without messaging; sends fail until relink.
		logger.Warn("messaging session failed to start", zap.Error(err))
	}

	verifier := otp.NewVerifier(otp.NewRedisStore(redisClient), cfg.OTPWindow())

	owners := ownerrepo.NewPostgresRepository(sqlDB)
	members := memberrepo.NewPostgresRepository(sqlDB)
	transactions := membershiprepo.NewPostgresRepository(sqlDB)
	policies := policyrepo.NewPostgresRepository(sqlDB)
	auditLogs := auditrepo.NewPostgresRepository(sqlDB)

	authService := ownerservice.NewAuthService(owners, hasher, tokens, cfg.ReminderDaysBefore)
	profileService := ownerservice.NewProfileService(owners, hasher, verifier, manager)
	memberService := memberservice.New(members, owners, manager, logger)
	membershipService := membershipservice.New(transactions, members, owners, manager, logger)

	evaluator := engine.NewOPAEvaluator(policies, logger)
	auditLogger := audit.NewLogger(auditLogs, nil)

	if cfg.ReminderEnabled {
		scheduler := reminder.NewScheduler(
			transactions,
			evaluator,
			reminder.NewRedisDeduper(redisClient),
			manager,
			auditLogger,
			cfg.ReminderInterval(),
			logger,
		)
		go scheduler.Run(ctx)
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		logger.Fatal("kafka producer", zap.Error(err))
	}
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "gymdesk-api", false)
	if err != nil {
		logger.Fatal("otel", zap.Error(err))
	}
	providers.SetGlobal()

	deps := server.Deps{
		Log:            logger,
		Tokens:         tokens,
		Owner:          ownerhandler.New(authService, profileService, logger),
		Member:         memberhandler.New(memberService, logger),
		Membership:     membershiphandler.New(membershipService, logger),
		Health:         health.NewHandler(sqlDB, evaluator, manager),
		RateLimiter:    middleware.NewRedisLimiter(redisClient),
		RateLimitMax:   int64(cfg.RateLimitRequests),
		RateLimitEvery: cfg.RateWindow(),
		Audit:          auditLogger,
	}
	if kafkaProducer != nil {
		deps.Telemetry = kafkaProducer
	}
	if cfg.OTPReturnToClient && cfg.Env != "production" {
		deps.DevOTP = devotp.NewHandler(verifier)
		logger.Warn("dev OTP mode enabled; GET /api/v1/dev/otp returns pending codes")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	cancel()
	manager.Shutdown()
	if kafkaProducer != nil {
		time.Sleep(telemetry.ShutdownDrainDuration)
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("kafka close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("otel shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
