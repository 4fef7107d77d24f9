package main

import (
	"context"
	"database/sql"

	config "github.com/davicafu/userlab/internal/config"
	chAudit "github.com/davicafu/userlab/internal/shared/infra/analytics/clickhouse"
	sharedMongo "github.com/davicafu/userlab/internal/shared/infra/db/mongodb"
	sharedPostgres "github.com/davicafu/userlab/internal/shared/infra/db/postgre"
	sharedSQLite "github.com/davicafu/userlab/internal/shared/infra/db/sqlite"
	infraEvents "github.com/davicafu/userlab/internal/shared/infra/events"
	"github.com/davicafu/userlab/internal/shared/infra/retry"
	userApp "github.com/davicafu/userlab/internal/user/application"
	userDomain "github.com/davicafu/userlab/internal/user/domain"
	userHttp "github.com/davicafu/userlab/internal/user/infra/inbound/http"
	userAuth "github.com/davicafu/userlab/internal/user/infra/outbound/auth"
	userCache "github.com/davicafu/userlab/internal/user/infra/outbound/cache"
	userRepoPg "github.com/davicafu/userlab/internal/user/infra/outbound/db/postgre"
	userRepoLite "github.com/davicafu/userlab/internal/user/infra/outbound/db/sqlite"
	userEvents "github.com/davicafu/userlab/internal/user/infra/outbound/events"
	"github.com/davicafu/userlab/pkg/logger"

	sharedBus "github.com/davicafu/userlab/internal/shared/infra/platform/bus"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	var (
		userRepo        userDomain.UserRepository
		failedEventRepo sharedDomain.FailedEventRepository
	)

	if cfg.UsePostgres {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}
		if err := userRepoPg.InitPostgres(db); err != nil {
			log.Fatal("failed to initialize Postgres", zap.Error(err))
		}
		if err := sharedPostgres.InitFailedEvents(db); err != nil {
			log.Fatal("failed to initialize failed_events table", zap.Error(err))
		}

		userRepo = userRepoPg.NewUserRepoPostgres(db)
		failedEventRepo = sharedPostgres.NewFailedEventRepoPostgres(db)
		log.Info("✅ Postgres conectado")
	} else {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()

		if err := userRepoLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		if err := sharedSQLite.InitFailedEvents(db); err != nil {
			log.Fatal("failed to initialize failed_events table", zap.Error(err))
		}

		userRepo = userRepoLite.NewUserRepoSQLite(db)
		failedEventRepo = sharedSQLite.NewFailedEventRepoSQLite(db)
		log.Info("✅ SQLite inicializado", zap.String("path", cfg.SQLitePath))
	}

	// El almacén durable de eventos fallidos puede vivir en Mongo.
	if cfg.UseMongo {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoClient.Disconnect(ctx)

		repo, err := sharedMongo.NewFailedEventRepoMongoDB(ctx, mongoClient, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to initialize MongoDB failed-event store", zap.Error(err))
		}
		failedEventRepo = repo
		log.Info("✅ MongoDB conectado para eventos fallidos")
	}

	// ---------------- Cache ----------------
	var cacheInstance userDomain.UserCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = userCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = userCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Events ---------------
	var bus sharedBus.EventBus

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		// El writer no lleva topic fijo: cada mensaje indica el suyo.
		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Balancer: &kafka.Hash{},
		}
		defer writer.Close()

		bus = infraEvents.NewKafkaPublisher(writer, log)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")
		bus = infraEvents.NewInMemoryEventBus()
	}

	// ------------- Reintentos --------------
	coordinator := retry.NewCoordinator(
		bus,
		failedEventRepo,
		userEvents.TopicRegistry(),
		userEvents.TopicUserFallback,
		retry.Config{
			FastInterval:     cfg.FastRetryInterval,
			SlowInterval:     cfg.SlowRetryInterval,
			MaxMemoryRetries: cfg.MemoryRetryMax,
			MaxStoredRetries: cfg.DurableRetryMax,
			BatchSize:        cfg.RetryBatchSize,
		},
		log,
	)

	if cfg.ClickHouseAddr != "" {
		audit, err := chAudit.NewDeliveryAuditRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin auditoría de entregas", zap.Error(err))
		} else {
			coordinator.SetAudit(audit)
			log.Info("✅ ClickHouse conectado, auditoría de entregas habilitada")
		}
	}

	coordinator.Start(ctx)

	producer := userEvents.NewUserEventProducer(bus, coordinator, "user-service", log)

	// --------------- Servicio --------------
	authClient := userAuth.NewHTTPAuthClient(cfg.AuthBaseURL, cfg.AuthTimeout, log)
	userService := userApp.NewUserService(userRepo, authClient, producer, cacheInstance, log)

	// ---------------- HTTP ----------------
	userHandler := userHttp.NewUserHandler(userService)
	router := gin.New()
	router.Use(userHttp.RequestLogger(log), gin.Recovery())
	userHttp.RegisterUserRoutes(router, userHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "retry_queue": coordinator.QueueSize()})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server: %v", zap.Error(err))
	}
}
