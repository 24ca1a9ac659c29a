package server

import (
	"context"
	"database/sql"
	"net/http"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/middleware"
	"github.com/rentfi/go-rentfi/publicapi"
	"github.com/rentfi/go-rentfi/service/auth"
	"github.com/rentfi/go-rentfi/service/logger"
	"github.com/rentfi/go-rentfi/service/persist/postgres"
	"github.com/rentfi/go-rentfi/service/redis"
)

// Clients holds the shared process-wide clients
type Clients struct {
	Repos        *postgres.Repositories
	DB           *sql.DB
	Pool         *pgxpool.Pool
	ListingCache *redis.Cache
	AssetCache   *redis.Cache
	Nonces       *auth.NonceStore
}

// ClientInit initializes the shared clients
func ClientInit(ctx context.Context) *Clients {
	db := postgres.MustCreateClient()
	pool := postgres.NewPgxClient()

	return &Clients{
		Repos:        postgres.NewRepositories(db, pool),
		DB:           db,
		Pool:         pool,
		ListingCache: redis.NewCache(redis.ListingCache),
		AssetCache:   redis.NewCache(redis.AssetCache),
		Nonces:       auth.NewNonceStore(redis.NewCache(redis.NonceCache)),
	}
}

// Init initializes the server and registers it on the default mux
func Init() {
	SetDefaults()
	ctx := context.Background()

	clients := ClientInit(ctx)
	router := CoreInit(ctx, clients)

	logger.For(nil).Info("starting rentfi server...")
	http.Handle("/", router)
}

// CoreInit initializes the router with its middleware and handlers
func CoreInit(ctx context.Context, clients *Clients) *gin.Engine {
	InitSentry()
	logger.SetLoggerOptions(func(l *logrus.Logger) {
		l.SetReportCaller(true)
	})

	if env.GetString("ENV") != "production" {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}

	router := gin.New()
	router.Use(gin.Logger(), middleware.GinContextToContext(), middleware.RecoveryHandler(), middleware.Sentry(true), middleware.Tracing(), middleware.HandleCORS(), middleware.ErrLogger())

	api := publicapi.New(ctx, clients.Repos, clients.ListingCache, clients.AssetCache, clients.Nonces)

	logger.For(nil).Info("registering handlers...")
	return HandlersInit(router, api, clients.Repos)
}

// SetDefaults sets the default env configuration
func SetDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("VERSION", "")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTGRES_HOST", "0.0.0.0")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "rentfi_backend")
	viper.SetDefault("POSTGRES_PASSWORD", "")
	viper.SetDefault("POSTGRES_DB", "postgres")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("REDIS_PASS", "")
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)
	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_JWT_TTL", 86400)
	viper.SetDefault("PLATFORM_FEE_BPS", 0)
	viper.SetDefault("PLATFORM_FEE_ADDRESS", "")

	viper.AutomaticEnv()

	if env.GetString("ENV") != "local" {
		env.RegisterValidation("SENTRY_DSN", "required")
		env.RegisterValidation("AUTH_JWT_SECRET", "required")
		env.VarsLoaded()
	}
}

// InitSentry initializes sentry reporting outside local environments
func InitSentry() {
	if env.GetString("ENV") == "local" {
		logger.For(nil).Info("skipping sentry init")
		return
	}

	logger.For(nil).Info("initializing sentry...")

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              env.GetString("SENTRY_DSN"),
		Environment:      env.GetString("ENV"),
		TracesSampleRate: env.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
		Release:          env.GetString("VERSION"),
		AttachStacktrace: true,
	})

	if err != nil {
		logger.For(nil).Fatalf("failed to start sentry: %s", err)
	}
}
