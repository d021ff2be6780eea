// Package main - точка входа HTTP API сервиса прогресса изучения языков.
//
// Сервис принимает ответы на упражнения, ведёт прогресс по урокам, юнитам и
// курсам, начисляет XP, поддерживает серии дней и ежедневные цели, открывает
// достижения и выдаёт сертификаты.
//
// Архитектура:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: команды, запросы и обработчики событий
// - Infrastructure: хранилища (memory/PostgreSQL), Redis, event bus
// - Interface: HTTP API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/lingo-progress/config"

	// Application layer
	"github.com/alem-hub/lingo-progress/internal/application/command"
	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/eventhandler"
	"github.com/alem-hub/lingo-progress/internal/application/query"
	"github.com/alem-hub/lingo-progress/internal/application/uow"

	// Domain
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"

	// Infrastructure layer
	"github.com/alem-hub/lingo-progress/internal/infrastructure/messaging"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/alem-hub/lingo-progress/internal/interface/http"
	"github.com/alem-hub/lingo-progress/internal/interface/http/handlers"

	// Packages
	"github.com/alem-hub/lingo-progress/pkg/circuitbreaker"
	"github.com/alem-hub/lingo-progress/pkg/logger"
	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// eventBus объединяет локальную и Redis шины.
type eventBus interface {
	shared.EventBus
	Close() error
}

// storage - выбранный бэкенд хранения.
type storage struct {
	uows    uow.Factory
	catalog catalog.Catalog
	pinger  handlers.Pinger
	close   func()
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:      os.Stdout,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		AddCaller:   true,
		Development: cfg.IsDevelopment(),
	})
	defer func() { _ = log.Sync() }()

	log.Info("starting lingo-progress",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("backend", string(cfg.Database.Backend)),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ (memory или PostgreSQL) И КАТАЛОГ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := setupStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache    *redis.Cache
		progressCache query.ProgressCache
		locker        uow.Locker
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		redisCache = redis.NewCache(client)
		progressCache = redis.NewProgressCache(redisCache, cfg.Redis.ProgressTTL,
			circuitbreaker.CacheBreaker("progress_cache", log))
		if cfg.Concurrency.LockEnabled {
			locker = redis.NewLearnerLocker(client, cfg.Concurrency.LockTTL, cfg.Concurrency.LockWait)
		}
		log.Info("redis connected", logger.String("addr", cfg.Redis.Addr))
	} else {
		log.Info("redis disabled, progress cache and learner lock are off")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	var bus eventBus
	if redisCache != nil {
		bus, err = messaging.NewRedisEventBus(ctx, redisCache.Client(), messaging.RedisEventBusConfig{
			Channel: cfg.Redis.EventChannel,
			Local:   busConfig,
			Logger:  log,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
	} else {
		bus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer bus.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Engine, Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	targets := gamification.DailyGoalTargets{
		XPGoal:      cfg.Gamification.DailyXPGoal,
		LessonsGoal: cfg.Gamification.DailyLessonsGoal,
	}

	eng := engine.New(store.catalog, engine.Config{
		Location:               cfg.App.Location,
		DailyTargets:           targets,
		CourseCompletionBonus:  cfg.Gamification.CourseCompletionBonus,
		CertificationBonus:     cfg.Gamification.CertificationBonus,
		AwardAchievementPoints: cfg.Gamification.AwardAchievementPoints,
	}, log)

	runner := command.NewRunner(store.uows, locker, bus, clock, log, command.RunnerConfig{
		ConflictRetries: cfg.Concurrency.ConflictRetries,
		ConflictBackoff: cfg.Concurrency.ConflictBackoff,
	})

	deps := httpserver.Dependencies{
		SubmitAnswer:        command.NewSubmitAnswerHandler(store.catalog, eng, runner, log),
		StartLesson:         command.NewStartLessonHandler(store.catalog, runner, log).WithDefaultHearts(cfg.Gamification.LessonHearts),
		CompleteLesson:      command.NewCompleteLessonHandler(store.catalog, eng, runner, log),
		RecordSession:       command.NewRecordSessionHandler(eng, runner, log),
		IssueCertification:  command.NewIssueCertificationHandler(store.catalog, eng, runner, log),
		RevokeCertification: command.NewRevokeCertificationHandler(runner, log),

		GetUserProgress:    query.NewGetUserProgressHandler(store.uows, progressCache, clock, cfg.App.Location, targets, log),
		CheckCertification: query.NewCheckCertificationHandler(store.uows, store.catalog),
		VerifyCertificate:  query.NewVerifyCertificateHandler(store.uows),

		Auth:   handlers.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Logger: log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if progressCache != nil {
		if err := eventhandler.NewOnProgressChangedHandler(progressCache, log).Register(bus); err != nil {
			return fmt.Errorf("failed to register progress cache handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if store.pinger != nil {
		health.AddCheck("database", handlers.NewPingCheck(store.pinger))
	}
	if redisCache != nil {
		health.AddCheck("redis", handlers.NewPingCheck(redisCache))
	}
	deps.HealthChecker = health

	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.Version = cfg.App.Version

	server := httpserver.NewServer(serverConfig, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, stopping services...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		// Останавливаем HTTP сервер. Event bus и хранилище закроются через defer.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown HTTP server", logger.Err(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("lingo-progress stopped gracefully")
	return nil
}

// setupStorage открывает выбранный бэкенд и загружает каталог.
func setupStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	seed, err := loadSeed(cfg.App.CatalogSeedPath)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Backend == config.BackendMemory {
		cat := memory.NewCatalog()
		if seed != nil {
			cat.Apply(*seed)
		}
		log.Warn("using in-memory storage, progress is lost on restart")
		return &storage{
			uows:    memory.NewStore(),
			catalog: cat,
			close:   func() {},
		}, nil
	}

	dbConfig := postgres.DefaultConfig()
	dbConfig.URL = cfg.Database.URL
	dbConfig.MaxConns = int32(cfg.Database.MaxConns)
	dbConfig.MinConns = int32(cfg.Database.MinConns)
	dbConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := postgres.NewConnection(connectCtx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}

	cat := postgres.NewCatalogRepository(conn)
	if seed != nil {
		if err := cat.Import(ctx, *seed); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to import catalog: %w", err)
		}
		log.Info("catalog imported",
			logger.Int("courses", len(seed.Courses)),
			logger.Int("lessons", len(seed.Lessons)),
			logger.Int("exercises", len(seed.Exercises)),
		)
	}

	return &storage{
		uows:    postgres.NewUnitOfWorkFactory(conn),
		catalog: cat,
		pinger:  conn,
		close:   conn.Close,
	}, nil
}

func loadSeed(path string) (*catalog.Seed, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog seed: %w", err)
	}
	defer f.Close()

	seed, err := catalog.DecodeSeed(f)
	if err != nil {
		return nil, err
	}
	return &seed, nil
}
