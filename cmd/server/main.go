package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basmah/config"
	"basmah/internal/database"
	"basmah/internal/handler"
	"basmah/internal/lock"
	"basmah/internal/middleware"
	"basmah/internal/queue"
	"basmah/internal/repository"
	"basmah/internal/repository/memstore"
	"basmah/internal/router"
	"basmah/internal/service"
	"basmah/internal/tracing"
	"basmah/internal/ws"
	"basmah/pkg/cloudinary"
	"basmah/pkg/ticketpdf"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "basmah-admin"

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	shutdownTracing, err := tracing.InitTracerProvider(serviceName, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing")
	}

	health := map[string]handler.Pinger{}
	var store repository.TxStore
	switch cfg.Database.Driver {
	case "memory":
		if cfg.IsProduction() {
			log.Fatal().Msg("DB_DRIVER=memory is not allowed in production")
		}
		log.Warn().Msg("using in-memory store; data is lost on restart")
		store = memstore.New()
	default:
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("database")
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
		store = repository.NewStore(db)
		health["mysql"] = database.Ping(db)
	}

	var (
		rdb     *redis.Client
		locker  lock.Locker = lock.NoopLocker{}
		limiter middleware.Limiter
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		locker = lock.NewRedisLocker(rdb, "basmah:lock:", cfg.Redis.LockTTL, cfg.Redis.LockWait)
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if n := cfg.Server.RateLimitPerMinute; n > 0 {
		if rdb != nil {
			limiter = middleware.NewRedisRateLimiter(rdb, "basmah:rl:", n, time.Minute)
		} else {
			limiter = middleware.NewInMemoryRateLimiter(n, time.Minute)
		}
	}

	var renderer service.TicketRenderer
	if cfg.PDF.Enabled {
		renderer = ticketpdf.NewRenderer(cfg.PDF.Timeout)
	}
	var uploader service.Uploader
	cloud, err := cloudinary.NewClient(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		log.Fatal().Err(err).Msg("cloudinary")
	}
	if cloud != nil {
		uploader = cloud
	} else {
		log.Info().Msg("gallery uploads disabled: set CLOUDINARY_* to enable")
	}

	hub := ws.NewHub()
	wallets := service.NewWalletService(store, service.WalletPolicy{AllowNegative: cfg.Policy.WalletAllowNegative})
	tickets := service.NewTicketService(store, wallets, service.TicketPolicy{AllowBackdatedExpiry: cfg.Policy.AllowBackdatedExpiry})
	users := service.NewUserAdminService(store)
	actions := service.NewAdminActionService(store, tickets, wallets, users, locker, hub, renderer)
	reconciler := service.NewReconciliationService(store, actions, wallets, cfg.Jobs.ReconcileRepairWallet)
	reconciler.OnFinish(func(rep *service.ReconcileReport) {
		hub.BroadcastAll(map[string]interface{}{"type": "reconcile_report", "report": rep})
	})
	gallery := service.NewGalleryService(uploader, cfg.Jobs.UploadConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.SeedAdmin(ctx, actions, cfg.AdminSeed); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}

	var scheduler *cron.Cron
	if cfg.Jobs.ReconcileCron != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Jobs.ReconcileCron, func() {
			rep, err := reconciler.Run(ctx)
			if err != nil {
				log.Error().Err(err).Msg("scheduled reconciliation failed")
				return
			}
			log.Info().Int("refunds_repaired", rep.RefundsRepaired).Int("wallets_drifted", rep.WalletsDrifted).Msg("scheduled reconciliation finished")
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Jobs.ReconcileCron).Msg("reconcile schedule")
		}
		scheduler.Start()
	}

	publisher, err := queue.NewPublisher(cfg.Broker)
	if err != nil {
		log.Fatal().Err(err).Msg("broker")
	}
	relayDone := make(chan struct{})
	if publisher != nil {
		relay := queue.NewRelay(store.Outbox(), publisher, cfg.Broker.RelayBatch, cfg.Broker.MaxAttempts, cfg.Broker.RelayEvery)
		go func() {
			defer close(relayDone)
			relay.Run(ctx)
		}()
	} else {
		close(relayDone)
		log.Info().Msg("outbox relay disabled: BROKER_KIND=none")
	}

	engine := router.Setup(cfg, router.Deps{
		Actions:    actions,
		Gallery:    gallery,
		Reconciler: reconciler,
		Hub:        hub,
		Limiter:    limiter,
		Health:     health,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	<-relayDone
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close broker publisher")
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	log.Info().Msg("server stopped")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("service", serviceName).Logger()
}
