package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/engine"
	"github.com/fjod/go_storefront/internal/httpapi"
	"github.com/fjod/go_storefront/internal/merge"
	"github.com/fjod/go_storefront/internal/poller"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/fjod/go_storefront/internal/store"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	TaxRate         string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		TaxRate:         getEnv("TAX_RATE", "0.0825"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// shippingTable is the fixed shipping cost table. Methods without a free
// threshold are never free.
func shippingTable() []domain.ShippingMethod {
	standardFree := decimal.RequireFromString("75.00")
	expressFree := decimal.RequireFromString("150.00")
	return []domain.ShippingMethod{
		{Code: "standard", Label: "Standard (5-7 days)", Cost: decimal.RequireFromString("7.99"), FreeThreshold: &standardFree},
		{Code: "express", Label: "Express (2-3 days)", Cost: decimal.RequireFromString("14.99"), FreeThreshold: &expressFree},
		{Code: "overnight", Label: "Overnight", Cost: decimal.RequireFromString("29.99")},
	}
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Set up MongoDB for the authenticated cart store
	mongoDB, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	mongoStore := store.NewMongoStore(mongoDB)
	if err := mongoStore.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	authStore := store.NewCachedStore(mongoStore, redisClient)
	anonStore := store.NewLocalStore()

	// The catalog is a collaborator; the in-memory implementation stands in
	// until the catalog backend is wired, behind the same breaker the real
	// client would get.
	cat := catalog.NewBreaker(catalog.NewMemoryCatalog())

	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		log.Fatalf("Invalid TAX_RATE %q: %v", cfg.TaxRate, err)
	}
	calculator := pricing.NewCalculator(shippingTable(), taxRate)

	locks := engine.NewKeyedMutex()
	engines := httpapi.Engines{
		Anonymous:     engine.New(cat, anonStore, engine.NewKeyedMutex()),
		Authenticated: engine.New(cat, authStore, locks),
	}
	coordinator := merge.NewCoordinator(cat, anonStore, authStore, locks)

	// Clear carts when checkout completes elsewhere
	pollerCtx, stopPoller := context.WithCancel(ctx)
	cartPoller := poller.New(authStore, cfg.KafkaBrokers...)
	go cartPoller.Run(pollerCtx)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(engines, cfg.RequestTimeout),
		httpapi.NewCheckoutHandler(engines, calculator, cfg.RequestTimeout),
		httpapi.NewMergeHandler(coordinator, cfg.RequestTimeout),
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(router, "storefront"),
	}

	go func() {
		log.Printf("Storefront listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down storefront...")
	stopPoller()
	cartPoller.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := mongoDB.Client().Disconnect(ctx); err != nil {
		log.Printf("Mongo disconnect error: %v", err)
	}
	log.Println("Storefront stopped")
}
