package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/confabhq/confab/internal/infrastructure/archive"
	"github.com/confabhq/confab/internal/infrastructure/configs"
	"github.com/confabhq/confab/internal/infrastructure/events"
	"github.com/confabhq/confab/internal/infrastructure/logging"
	"github.com/confabhq/confab/internal/infrastructure/messaging"
	"github.com/confabhq/confab/internal/infrastructure/metrics"
	"github.com/confabhq/confab/internal/infrastructure/ratelimiter"
	"github.com/confabhq/confab/internal/infrastructure/tracing"
	"github.com/confabhq/confab/internal/infrastructure/ws"
	"github.com/confabhq/confab/internal/persistence/db"
	"github.com/confabhq/confab/internal/persistence/repository"
	"github.com/confabhq/confab/internal/presentation/api"
	"github.com/confabhq/confab/internal/presentation/handler/health"
	"github.com/confabhq/confab/internal/presentation/handler/history"
	"github.com/confabhq/confab/internal/presentation/handler/rooms"
	"github.com/confabhq/confab/internal/presentation/handler/users"
)

const (
	serviceName = "confab-api"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	mongoClient, err := db.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal(err)
	}
	defer db.DisconnectMongo(context.Background(), mongoClient)

	database := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureRoomIndexes(ctx, database); err != nil {
		log.Fatal(err)
	}

	roomRepository := repository.NewRoomRepository(database)
	messageRepository := repository.NewMessageRepository(database)
	whiteboardRepository := repository.NewWhiteboardRepository(database)
	historyRepository := repository.NewHistoryRepository(database)
	userRepository := repository.NewUserRepository(database)
	auditRepository := repository.NewRoomAuditLogRepository(database)
	if err := auditRepository.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		log.Println("Starting RabbitMQ connection")

		publisher = events.NewRoomPublisher(rabbitmq)

		roomConsumer := events.NewRoomConsumer(rabbitmq, auditRepository)
		go roomConsumer.Listen()
	}

	m := metrics.New()

	archiver := archive.NewService(
		roomRepository,
		messageRepository,
		whiteboardRepository,
		historyRepository,
		userRepository,
		publisher,
		logger,
	)

	wsCore := ws.NewCore(
		roomRepository,
		messageRepository,
		whiteboardRepository,
		archiver,
		publisher,
		m,
		logger,
	)
	go wsCore.Run(ctx)

	roomHandler := rooms.NewHandler(roomRepository, wsCore, cfg.Realtime)
	historyHandler := history.NewHandler(historyRepository, userRepository)
	usersHandler := users.NewHandler(userRepository)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, roomHandler, historyHandler, usersHandler, healthHandler, logger, rl, m)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
