package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"eventhub/config"
	"eventhub/db"
	"eventhub/jobs"
	"eventhub/logger"
	"eventhub/models"
	"eventhub/routes"
	"eventhub/services"
	"eventhub/utils"
)

func main() {
	if err := run(); err != nil {
		logger.Error("exit", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres
	sqldb, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	// Mongo
	mg, eventsCol, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() { _ = mg.Disconnect(context.Background()) }()

	// Redis
	rdb, err := db.OpenRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	events := models.NewMongoEventRepository(eventsCol, cfg.StoreTimeout)
	users := models.NewSQLUserRepository(sqldb, cfg.StoreTimeout)
	clock := utils.SystemClock()

	// repair queue, worker and periodic scan
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	taskClient := asynq.NewClient(redisOpt)
	defer taskClient.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	reconciler := services.NewReconciler(events, users)
	worker := jobs.NewServer(redisOpt, cfg.WorkerConcurrency)
	scheduler, err := jobs.NewScheduler(redisOpt, cfg.ReconcileCron)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	server := gin.New()
	stopLimiters := routes.RegisterRoutes(server, routes.Deps{
		Coordinator: services.NewCoordinator(events, users, clock, jobs.NewQueue(taskClient, inspector)),
		Query:       services.NewQueryService(events, users, clock),
		Users:       users,
		Tokens:      utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Redis:       rdb,
		Invalidator: utils.NewCacheInvalidator(rdb),
		CacheTTL:    cfg.CacheTTL,
		DailyQuota:  cfg.DailyQuota,
		CORSOrigins: cfg.CORSOrigins,
	})
	defer stopLimiters()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Start(jobs.NewHandler(reconciler).Mux()); err != nil {
			return err
		}
		<-gctx.Done()
		worker.Shutdown()
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Shutdown()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
