package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/runwiththewinners/bounties/config"
	"github.com/runwiththewinners/bounties/database"
	"github.com/runwiththewinners/bounties/handlers"
	"github.com/runwiththewinners/bounties/logger"
	"github.com/runwiththewinners/bounties/metrics"
	"github.com/runwiththewinners/bounties/middleware"
	"github.com/runwiththewinners/bounties/services"
	"github.com/runwiththewinners/bounties/utils"
	"github.com/runwiththewinners/bounties/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var gateway services.PayoutGateway
	if cfg.Payout.DryRun {
		log.Warn("PAYOUT_DRY_RUN enabled: transfers are recorded in memory only")
		gateway = services.NewLedgerGateway()
	} else {
		gateway = services.NewWhopClient(cfg.Whop.APIURL, cfg.Whop.APIKey,
			cfg.Payout.Timeout, cfg.Payout.RatePerSecond, cfg.Payout.Burst)
	}

	proofs, err := newProofStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("failed to initialize proof storage", zap.Error(err))
	}

	bountyService := services.NewBountyService(db, log.Named("bounties"))
	submissionService := services.NewSubmissionService(db, log.Named("submissions"), m)
	leaderboardService := services.NewLeaderboardService(db, log.Named("leaderboard"))
	transferService := services.NewTransferService(gateway, cfg.Whop.CompanyID, cfg.Payout.Currency, log.Named("transfers"), m)
	approvalService := services.NewApprovalService(db, submissionService, bountyService, leaderboardService,
		transferService, log.Named("approvals"), m)

	if _, err := leaderboardService.EnsureStats(ctx); err != nil {
		log.Fatal("failed to initialize stats", zap.Error(err))
	}

	sched, err := bountyService.StartExpiryScheduler(cfg.Jobs.ExpirySweepInterval, m)
	if err != nil {
		log.Fatal("failed to start expiry scheduler", zap.Error(err))
	}
	defer sched.Shutdown()

	reconciler := workers.NewReconcileWorker(leaderboardService, cfg.Jobs.ReconcileInterval, log.Named("reconcile"))
	go reconciler.Run(ctx)

	submitLimiter := middleware.NewMemberRateLimiter(cfg.Submit.RatePerMinute, cfg.Submit.Burst)
	go submitLimiter.Cleanup(ctx.Done())

	app := fiber.New(fiber.Config{
		AppName:     "bounties",
		BodyLimit:   handlers.MaxProofSize + 1024*1024,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name, X-User-Initials, X-User-Tier, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// 🔐 GLOBAL: only Gateway requests allowed, except probes
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, log.Named("gateway"), "/healthz", "/metrics"))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if local, ok := proofs.(*utils.LocalStore); ok {
		app.Static("/uploads", local.Dir)
	}

	handlers.SetupRoutes(app, handlers.Services{
		Bounties:    bountyService,
		Submissions: submissionService,
		Approvals:   approvalService,
		Leaderboard: leaderboardService,
		Transfers:   transferService,
		Proofs:      proofs,
		SubmitLimit: submitLimiter.Handler(),
	}, log.Named("http"))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	log.Info("✅ server running",
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("payout_dry_run", cfg.Payout.DryRun),
		zap.Strings("allowed_origins", cfg.AllowedOrigins))

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newProofStore(ctx context.Context, cfg config.StorageConfig) (utils.ProofStore, error) {
	if cfg.R2Enabled() {
		return utils.NewR2Store(ctx, utils.R2Config{
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Bucket:          cfg.Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
	}
	return utils.NewLocalStore(cfg.UploadDir, "/uploads")
}
