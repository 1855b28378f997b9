// @title           Legal Consult API
// @version         0.1.0
// @description     API for a small legal-consultation marketplace: phone OTP login, consultation requests and their lifecycle, lawyers, payments, attachments and a reference article corpus.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aldoetobex/legal-consult-backend/internal/attachments"
	"github.com/aldoetobex/legal-consult-backend/internal/auth"
	"github.com/aldoetobex/legal-consult-backend/internal/config"
	"github.com/aldoetobex/legal-consult-backend/internal/logging"
	"github.com/aldoetobex/legal-consult-backend/internal/otp"
	"github.com/aldoetobex/legal-consult-backend/internal/requests"
	"github.com/aldoetobex/legal-consult-backend/internal/store"
	"github.com/aldoetobex/legal-consult-backend/pkg/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseURL, "up"); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
	}
	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("database handle")
	}
	defer sqlDB.Close()
	if cfg.RunMigrations {
		added, err := database.EnsureConstraints(ctx, sqlDB, database.Constraints)
		if err != nil {
			log.WithError(err).Fatal("constraint back-filling failed")
		}
		if len(added) > 0 {
			log.WithField("constraints", added).Info("constraints added")
		}
	}
	st := store.New(db)

	// OTP codes
	var codeStore otp.Store
	switch cfg.OTPStore {
	case "redis":
		rdb, err := otp.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis unavailable")
		}
		defer rdb.Close()
		codeStore = otp.NewRedisStore(rdb)
	default:
		mem := otp.NewMemoryStore()
		purger, err := otp.StartPurger(cfg.OTPPurgeSchedule, mem, log)
		if err != nil {
			log.WithError(err).Fatal("invalid OTP_PURGE_SCHEDULE")
		}
		defer purger.Stop()
		codeStore = mem
	}

	var notifier otp.Notifier = otp.LogNotifier{Log: log}
	if cfg.SMSAPIKey != "" {
		notifier = otp.NewSMSNotifier(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender)
	} else if cfg.IsProduction() {
		log.Warn("SMS_API_KEY is not set; OTP codes are only logged")
	}

	codes := otp.NewAuthenticator(codeStore, st, notifier,
		otp.WithTTL(cfg.CodeTTL()),
		otp.WithHashCost(cfg.OTPHashCost),
		otp.WithLogger(log),
	)

	var policy requests.Policy = requests.Permissive
	if cfg.StrictTransitions {
		policy = requests.ForwardOnly
	}

	bucket := attachments.NewBucket(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket, log)
	if !bucket.Configured() {
		log.Warn("SUPABASE_URL / SUPABASE_SERVICE_KEY not set; attachment uploads are disabled")
	}

	var limiter *auth.IPRateLimiter
	if cfg.AuthRateLimitRPS > 0 {
		limiter = auth.NewIPRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	}

	app := newApp(deps{
		log:         log,
		store:       st,
		codes:       codes,
		tokens:      auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL()),
		policy:      policy,
		bucket:      bucket,
		limiter:     limiter,
		corsOrigins: cfg.CORSOrigins,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env, "version": version}).Info("server running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
