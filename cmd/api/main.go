package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"spa-comments/internal/broker"
	"spa-comments/internal/config"
	"spa-comments/internal/filestorage"
	"spa-comments/internal/handler"
	"spa-comments/internal/middleware"
	"spa-comments/internal/outbox"
	"spa-comments/internal/pkg/i18n"
	"spa-comments/internal/pkg/logger"
	"spa-comments/internal/pkg/sanitize"
	"spa-comments/internal/realtime"
	"spa-comments/internal/repository"
	"spa-comments/internal/search"
	"spa-comments/internal/service/captcha"
	"spa-comments/internal/service/comment"
	searchsvc "spa-comments/internal/service/search"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("[api] no .env file found, using environment variables")
	}

	cfg := config.Load()
	logEntry := logger.New(cfg.LogLevel, cfg.Environment).WithField("process", "api")

	if err := cfg.Validate(); err != nil {
		logEntry.Fatalf("[api] invalid configuration: %v", err)
	}
	if err := i18n.LoadEmbedded(); err != nil {
		logEntry.Fatalf("[api] failed to load translations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		logEntry.Fatalf("[api] failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := repository.RunMigrations(db); err != nil {
			logEntry.Fatalf("[api] %v", err)
		}
	}

	redisClient, err := config.NewRedisClient(ctx, cfg)
	if err != nil {
		logEntry.Fatalf("[api] failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	checks := map[string]handler.HealthCheck{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	files, closeFiles, err := newFileClient(ctx, cfg, checks)
	if err != nil {
		logEntry.Fatalf("[api] failed to set up file storage: %v", err)
	}
	defer closeFiles()

	es, err := config.NewElasticsearchClient(cfg)
	if err != nil {
		logEntry.Fatalf("[api] failed to create Elasticsearch client: %v", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		logEntry.Fatalf("[api] failed to connect to broker: %v", err)
	}
	defer publisher.Close()

	repos := repository.NewRepositories(db)

	queue := realtime.NewQueue(cfg.RealtimeQueueSize, cfg.RealtimeEnqueueTimeout)
	hub := realtime.NewHub(cfg.RealtimeWriteTimeout, logEntry)
	broadcaster := realtime.NewBroadcaster(queue, hub, logEntry)

	captchaService := captcha.NewService(captcha.NewRedisStore(redisClient), captcha.Options{
		TTL:    cfg.CaptchaTTL,
		Length: cfg.CaptchaLength,
	})
	commentService := comment.NewService(repos.Comment, captchaService, files, sanitize.NewHTML(), queue, comment.Options{
		PresignTTL: cfg.PresignTTL,
		Logger:     logEntry,
	})
	searchService := searchsvc.NewService(search.NewESReader(es, cfg.ElasticsearchIndex))

	relay := outbox.NewRelay(repos.Outbox, publisher, outbox.Config{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		MaxBackoff:   cfg.OutboxMaxBackoff,
	}, logEntry)

	handlers := handler.NewHandlers(
		commentService,
		captchaService,
		searchService,
		handler.NewRealtimeHandler(hub),
		handler.NewHealthHandler(checks),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.NewErrorHandler(logEntry),
		BodyLimit:    int(11 << 20),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestContext(context.Background(), cfg.RequestTimeout))
	app.Use(middleware.RequestLogger(logEntry.WithField("component", "http"), "/health", "/metrics"))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Accept-Language",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: handler.HeaderCaptchaID,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.Register(app)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return broadcaster.Run(gctx) })
	g.Go(func() error {
		logEntry.Infof("[api] server starting on port %s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		queue.Close()
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logEntry.Errorf("[api] stopped with error: %v", err)
		return
	}
	logEntry.Info("[api] stopped")
}

func newPublisher(cfg *config.Config) (broker.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		return broker.NewRabbitMQ(broker.RabbitMQConfig{URL: cfg.RabbitMQURL, QueueName: cfg.RabbitMQQueue})
	case config.BrokerKafka:
		return broker.NewKafkaPublisher(broker.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}), nil
	}
	return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
}

// newFileClient builds the configured file storage collaborator and adds its
// dependencies to checks.
func newFileClient(ctx context.Context, cfg *config.Config, checks map[string]handler.HealthCheck) (filestorage.Client, func(), error) {
	if cfg.FileStorage == config.FileStorageHTTP {
		return filestorage.NewHTTPClient(cfg.FileServiceURL, cfg.FileServiceTimeout), func() {}, nil
	}

	minioClient, err := config.NewMinIOClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("minio: %w", err)
	}

	mongoClient, mongoDB, err := config.NewMongoDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: %w", err)
	}
	checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }

	store := filestorage.NewMinioStore(minioClient, filestorage.NewMongoMetadataStore(mongoDB), cfg.MinIOBucket)
	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(shutdownCtx)
	}
	return store, closeFn, nil
}
