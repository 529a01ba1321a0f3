/**
 * @description
 * This is the main entry point for the generation-service. It is responsible
 * for initializing all components of the service: configuration, database
 * connection, Redis, RabbitMQ, the external API clients (inference queue,
 * billing provider, bot verification), the repository, the core application
 * service, and the HTTP server. Clients are constructed here and injected
 * explicitly; nothing holds module-level singletons.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/catalog, internal/config, internal/store: Internal packages.
 * - pkg/billingclient, pkg/queueclient, pkg/rabbitmq, pkg/verifyclient: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/kinetix/generation-service/internal/api"
	"github.com/kinetix/generation-service/internal/app"
	"github.com/kinetix/generation-service/internal/catalog"
	"github.com/kinetix/generation-service/internal/config"
	"github.com/kinetix/generation-service/internal/store"
	"github.com/kinetix/generation-service/pkg/billingclient"
	"github.com/kinetix/generation-service/pkg/queueclient"
	"github.com/kinetix/generation-service/pkg/rabbitmq"
	"github.com/kinetix/generation-service/pkg/verifyclient"
)

func main() {
	// Load a local .env when present; deployed environments inject real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment values\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.QueueAPIBaseURL) == "" || strings.TrimSpace(cfg.QueueAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"inference queue must be configured\" env=QUEUE_API_BASE_URL,QUEUE_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting generation-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Load the model catalog: a configured JSON file wins over the compiled-in defaults.
	var modelCatalog *catalog.Catalog
	if strings.TrimSpace(cfg.CatalogPath) != "" {
		modelCatalog, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"catalog load failed\" path=%s err=%v", cfg.CatalogPath, err)
		}
		log.Printf("level=info component=bootstrap msg=\"catalog loaded from file\" path=%s", cfg.CatalogPath)
	} else {
		modelCatalog = catalog.Default()
	}

	// The guest limiter prefers Redis; when Redis is unconfigured or
	// unreachable it degrades to a best-effort in-process window.
	window := time.Duration(cfg.GuestWindowHours) * time.Hour
	var guestLimiter app.GuestLimiter = app.NewLocalWindowLimiter(cfg.GuestDailyLimit, window)
	if cfg.RedisURL == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; guest limiting degrades to in-process window\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; guest limiting degrades to in-process window\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; guest limiting degrades to in-process window\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				guestLimiter = app.NewRedisGuestRateLimiter(redisClient, cfg.RedisGuestLimitPrefix, cfg.GuestDailyLimit, window)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the RabbitMQ producer to publish generation lifecycle events.
	var eventProducer rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventProducer = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		eventProducer = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize external service clients.
	queueClient := queueclient.NewClient(cfg.QueueAPIBaseURL, cfg.QueueAPIKey, time.Duration(cfg.QueueSubmitTimeoutSec)*time.Second)
	billingClient := billingclient.NewClient(cfg.BillingAPIBaseURL, cfg.BillingAPIKey)

	var verifier app.ChallengeVerifier
	if strings.TrimSpace(cfg.VerifySecretKey) == "" {
		log.Println("level=warn component=bootstrap msg=\"bot verification not configured; anonymous challenge gate disabled\" env=VERIFY_SECRET_KEY")
	} else {
		verifier = verifyclient.NewClient(cfg.VerifyURL, cfg.VerifySecretKey)
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	generationService := app.NewService(
		repository,
		modelCatalog,
		queueClient,
		billingClient,
		verifier,
		guestLimiter,
		eventProducer,
	)
	generationService.SetImagePixelBudget(cfg.ImagePixelBudget)

	// Initialize the API handlers and router.
	generationHandlers := api.NewGenerationHandlers(generationService)
	router := api.NewRouter(generationHandlers, cfg.SessionJWKSURL, cfg.CORSAllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
