package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-funnel-service/internal/admin"
	"quiz-funnel-service/internal/app"
	"quiz-funnel-service/internal/config"
	"quiz-funnel-service/internal/events"
	"quiz-funnel-service/internal/infra/memory"
	"quiz-funnel-service/internal/infra/postgres"
	redisinfra "quiz-funnel-service/internal/infra/redis"
	"quiz-funnel-service/internal/jobs"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/templates"
	transport "quiz-funnel-service/internal/transport/http"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const presenceTTL = 2 * time.Minute

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz funnel server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// storage groups the persistence backends picked from config.
type storage struct {
	funnel app.FunnelStore
	admin  admin.Repository
	close  func()
}

func openStorage(ctx context.Context, cfg config.Config, logger logging.Logger) (storage, error) {
	if cfg.Postgres.URL == "" {
		logger.Warn("postgres not configured, using in-memory store")
		store := memory.NewStore()
		return storage{funnel: store, admin: store, close: func() {}}, nil
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return storage{}, err
	}
	db := openBunDB(cfg.Postgres.URL)
	return storage{
		funnel: postgres.NewStore(pool),
		admin:  postgres.NewAdminRepository(db),
		close: func() {
			_ = db.Close()
			pool.Close()
		},
	}, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Format, cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	registry := templates.NewBuiltinRegistry()
	if cfg.Quiz.TemplatesDir != "" {
		n, err := templates.RegisterDir(registry, cfg.Quiz.TemplatesDir)
		if err != nil {
			return err
		}
		logger.Info("loaded quiz templates", "dir", cfg.Quiz.TemplatesDir, "count", n)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	stores, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var directory app.QuizDirectory
	var presence app.PresenceTracker
	if redisClient != nil {
		directory = redisinfra.NewQuizDirectory(redisClient, stores.funnel, quizTTL)
		presence = redisinfra.NewPresence(redisClient, presenceTTL)
	} else {
		directory = memory.NewQuizDirectory(stores.funnel, quizTTL)
		presence = memory.NewPresence(presenceTTL)
	}

	funnel := app.NewFunnelService(stores.funnel, directory, nil, logger)
	if err := funnel.SeedQuizzes(ctx, registry.All()); err != nil {
		return err
	}

	callTimeout := config.TTLDuration(cfg.Runtime.CallTimeout, 10*time.Second)
	pipeline, err := events.NewPipeline(events.Config{
		Publisher:     cfg.Events.Publisher,
		KafkaBrokers:  cfg.Events.KafkaBrokers,
		Topic:         cfg.Events.Topic,
		ConsumerGroup: cfg.Events.ConsumerGroup,
		WriteTimeout:  callTimeout,
	}, funnel, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.LogError(err, "close event pipeline")
		}
	}()
	if pipeline.Consumer != nil {
		consumerErr := make(chan error, 1)
		go func() {
			consumerErr <- pipeline.Consumer.Run(ctx)
		}()
		select {
		case <-pipeline.Consumer.Running():
			go func() {
				if err := <-consumerErr; err != nil {
					logger.LogError(err, "event consumer stopped")
				}
			}()
		case err := <-consumerErr:
			if err == nil {
				err = errors.New("exited before subscribing")
			}
			return fmt.Errorf("start event consumer: %w", err)
		}
	}

	webhookTimeout := config.TTLDuration(cfg.Jobs.WebhookTimeout, 10*time.Second)
	deliverer := jobs.NewDeliverer(webhookTimeout, pipeline.Sink, logger)
	if cfg.Jobs.Enabled && cfg.Redis.Addr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		queue := jobs.NewQueue(redisOpt, webhookTimeout, logger)
		worker := jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, deliverer, logger)
		if err := worker.Start(); err != nil {
			_ = queue.Close()
			return err
		}
		defer func() {
			worker.Shutdown()
			_ = queue.Close()
		}()
		funnel.UseWebhooks(queue)
		logger.Info("lead webhooks queued", "concurrency", cfg.Jobs.Concurrency)
	} else {
		inline := jobs.NewInlineDispatcher(deliverer, webhookTimeout)
		defer inline.Wait()
		funnel.UseWebhooks(inline)
	}

	runtime := app.NewRuntime(registry, funnel, pipeline.Sink, presence, app.RuntimeConfig{
		AutoAdvanceDelay: config.TTLDuration(cfg.Runtime.AutoAdvanceDelay, 3*time.Second),
		CallTimeout:      callTimeout,
	}, logger)

	var adminHandler *transport.AdminHandler
	if cfg.Admin.PasswordHash != "" && cfg.Admin.JWTSecret != "" {
		auth := admin.NewAuthenticator(admin.AuthConfig{
			Username:     cfg.Admin.Username,
			PasswordHash: cfg.Admin.PasswordHash,
			Secret:       cfg.Admin.JWTSecret,
			TokenTTL:     config.TTLDuration(cfg.Admin.TokenTTL, 8*time.Hour),
		})
		adminSvc := admin.NewService(stores.admin, directory, presence, registry, logger)
		adminHandler = transport.NewAdminHandler(adminSvc, auth, logger)
	} else {
		logger.Warn("admin credentials not configured, admin API disabled")
	}

	router := transport.NewRouter(transport.RouterConfig{
		API:         transport.NewAPIHandler(funnel, registry, logger),
		Admin:       adminHandler,
		WS:          transport.NewWSHandler(runtime, logger),
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz funnel service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError(err, "failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(err, "http shutdown")
	}
	return runtime.Shutdown(shutdownCtx)
}
