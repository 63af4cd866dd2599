package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/workout-tracker/internal/config"
	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/handler"
	"github.com/iliyamo/workout-tracker/internal/middleware"
	"github.com/iliyamo/workout-tracker/internal/queue"
	"github.com/iliyamo/workout-tracker/internal/repository"
	"github.com/iliyamo/workout-tracker/internal/router"
	"github.com/iliyamo/workout-tracker/internal/service"
	"github.com/iliyamo/workout-tracker/internal/validation"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProd() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return log.With(zap.String("env", cfg.Env))
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var publisher service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQPEnabled {
		publisher = queue.NewPublisher(cfg.AMQPURL, log)
	}

	// ---- repositories ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	exercises := repository.NewExerciseRepo(db)
	routines := repository.NewRoutineRepo(db)
	slots := repository.NewRoutineExerciseRepo(db)
	logs := repository.NewWorkoutLogRepo(db)
	maxWeights := repository.NewMaxWeightRepo(db)
	tx := database.NewTransactor(db)

	// ---- services ----
	catalog := service.NewExerciseService(tx, exercises, logs, maxWeights, log)
	routineSvc := service.NewRoutineService(tx, routines, slots, catalog, publisher, log)
	logSvc := service.NewWorkoutLogService(tx, logs, users, catalog, log)
	maxWeightSvc := service.NewMaxWeightService(tx, logs, maxWeights, publisher, log)
	userSvc := service.NewUserService(cfg, tx, users, tokens, logs, maxWeights, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))

	cacheCfg := config.LoadCacheConfig()
	router.Register(e, router.Deps{
		DB:          db,
		Users:       handler.NewUserHandler(userSvc, cfg.RequestTimeout, log),
		Exercises:   handler.NewExerciseHandler(catalog, cfg.RequestTimeout, log),
		Routines:    handler.NewRoutineHandler(routineSvc, cfg.RequestTimeout, log),
		WorkoutLog:  handler.NewWorkoutLogHandler(logSvc, cfg.RequestTimeout, log),
		MaxWeight:   handler.NewMaxWeightHandler(maxWeightSvc, cfg.RequestTimeout, log),
		Auth:        middleware.JWTAuth(cfg.JWTSecret, users, log),
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:       middleware.NewRedisCache(cacheCfg, rdb, log),
		Invalidator: middleware.NewCacheInvalidator(cacheCfg, rdb, log),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
