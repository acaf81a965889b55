package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/scriptaiapp/scriptai-backend/internal/admin"
	"github.com/scriptaiapp/scriptai-backend/internal/auth"
	"github.com/scriptaiapp/scriptai-backend/internal/config"
	"github.com/scriptaiapp/scriptai-backend/internal/feature"
	apphttp "github.com/scriptaiapp/scriptai-backend/internal/http"
	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/logging"
	"github.com/scriptaiapp/scriptai-backend/internal/monitoring"
	"github.com/scriptaiapp/scriptai-backend/internal/referral"
	"github.com/scriptaiapp/scriptai-backend/internal/reports"
	"github.com/scriptaiapp/scriptai-backend/internal/router"
	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("creating pgx pool", zap.Error(err))
	}
	defer pool.Close()

	// The database may still be coming up alongside us; ping with backoff.
	err = store.Retry(ctx, 5, 500*time.Millisecond, func(ctx context.Context) error {
		return store.Classify(pool.Ping(ctx))
	})
	if err != nil {
		logger.Fatal("pinging database", zap.Error(err))
	}

	ledgerStore := ledger.NewPGStore(pool)
	ledgerSvc := ledger.New(ledgerStore, logger)

	referralStore := referral.NewPGStore(pool)
	referralSvc := referral.NewService(referralStore, ledgerSvc, logger)

	gate := feature.NewGate(ledgerSvc, feature.StubGenerator{}, cfg.GenerateTimeout, logger)

	authHandler := &apphttp.AuthHandler{
		DB:          pool,
		Secret:      []byte(cfg.JWTSecret),
		Ledger:      ledgerSvc,
		Referrals:   referralSvc,
		SignupGrant: cfg.SignupGrant,
		Log:         logger,
	}
	accountHandler := &apphttp.AccountHandler{DB: pool, Ledger: ledgerSvc, Log: logger}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(router.CorsMiddleware(cfg.CORSOrigin))
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	r := &router.Router{
		AuthHandler:     authHandler,
		AccountHandler:  accountHandler,
		CreditsHandler:  ledger.NewHandler(ledgerSvc),
		ReferralHandler: referral.NewHandler(referralSvc),
		FeatureHandler:  feature.NewHandler(gate),
		AdminHandler:    admin.NewHandler(pool, ledgerSvc, logger),
		ReportsHandler:  reports.NewHandler(pool),
		AuthMW:          auth.Middleware([]byte(cfg.JWTSecret)),
		AdminMW:         admin.RequireAPIKey(cfg.AdminAPIKey),
		GenerateMW: limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
		}),
	}
	r.RegisterRoutes(app)

	go func() {
		if err := monitoring.Serve(cfg.MetricsAddr); err != nil {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)))
		return err
	}
}
