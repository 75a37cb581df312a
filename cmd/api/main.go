package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/seller-hub/internal/application"
	appanalysis "github.com/bryanwahyu/seller-hub/internal/application/analysis"
	appauth "github.com/bryanwahyu/seller-hub/internal/application/auth"
	appcatalog "github.com/bryanwahyu/seller-hub/internal/application/catalog"
	"github.com/bryanwahyu/seller-hub/internal/config"
	domain "github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/infra/ai/gemini"
	"github.com/bryanwahyu/seller-hub/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/seller-hub/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/seller-hub/internal/infra/db/postgres"
	"github.com/bryanwahyu/seller-hub/internal/infra/httpserver"
	"github.com/bryanwahyu/seller-hub/internal/infra/marketplace/mercadolibre"
	"github.com/bryanwahyu/seller-hub/internal/infra/secure"
	"github.com/bryanwahyu/seller-hub/internal/infra/statestore"
	minioStore "github.com/bryanwahyu/seller-hub/internal/infra/storage"
	"github.com/bryanwahyu/seller-hub/internal/logx"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logx.Init(logx.Options{
		Environment: logx.ParseEnvironment(cfg.Server.Environment),
		Level:       cfg.Server.LogLevel,
	})

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// database is optional; without it there is no history and no stored tokens
	var (
		analysisRepo domain.Repository
		tokenRepo    marketplace.TokenRepository
	)
	if cfg.Database.Driver != "" {
		db, err := connectDB(ctx, cfg)
		if err != nil {
			logx.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database connect error")
		}
		defer db.Close()
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}

		sealer, err := secure.NewSealer(cfg.Security.TokenSealingKey)
		if err != nil {
			logx.Warn().Err(err).Msg("token sealing key unusable, tokens will not be stored")
		}
		analysisRepo, tokenRepo = newRepos(cfg.Database.Driver, db, sealer)
	}

	// oauth state store
	var states marketplace.StateStore = statestore.NewMemory()
	if cfg.Redis.URL != "" {
		rdb, err := statestore.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logx.Fatal().Err(err).Msg("redis connect error")
		}
		defer rdb.Close()
		rs := statestore.NewRedis(rdb)
		states = rs
		checkers["redis"] = rs
	} else {
		logx.Warn().Msg("REDIS_URL not set, oauth state is kept in memory (single instance only)")
	}

	// init minio
	var archive domain.ArchiveStore
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logx.Fatal().Err(err).Msg("minio init error")
		}
		archive = store
		checkers["minio"] = store
	}

	ml := mercadolibre.New(mercadolibre.Options{
		AuthURL:      cfg.Marketplace.AuthURL,
		APIURL:       cfg.Marketplace.APIURL,
		ClientID:     cfg.Marketplace.ClientID,
		ClientSecret: cfg.Marketplace.ClientSecret,
		RedirectURI:  cfg.Marketplace.RedirectURI,
		Scope:        cfg.Marketplace.Scope,
		SiteID:       cfg.Marketplace.SiteID,
		Timeout:      cfg.AI.Timeout,
	})

	providers, err := newProviders(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("ai provider init error")
	}

	clock := application.SystemClock{}
	authSvc := &appauth.Service{
		IdP:    ml,
		States: states,
		Tokens: tokenRepo,
		Creds: appauth.Credentials{
			ClientID:     cfg.Marketplace.ClientID,
			ClientSecret: cfg.Marketplace.ClientSecret,
			RedirectURI:  cfg.Marketplace.RedirectURI,
		},
		StateTTL: cfg.Marketplace.StateTTL,
		Clock:    clock,
	}
	analysisSvc := &appanalysis.Service{
		Providers: providers,
		Repo:      analysisRepo,
		Archive:   archive,
		Clock:     clock,
		Timeout:   cfg.AI.Timeout,
	}
	catalogSvc := &appcatalog.Service{Catalog: ml, Clock: clock}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	stopSweep := make(chan struct{})
	go limiter.Run(stopSweep)
	defer close(stopSweep)

	handler := httpserver.NewRouter(httpserver.Options{
		Auth:           authSvc,
		Analysis:       analysisSvc,
		Catalog:        catalogSvc,
		Checkers:       checkers,
		APIKeys:        cfg.Security.APIKeys,
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ExposeTokens:   cfg.Marketplace.ExposeTokens,
		TrustProxy:     cfg.Server.TrustProxy,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// analysis calls may take the full upstream timeout
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logx.Info().Str("addr", addr).Int("providers", len(providers)).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logx.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logx.Error().Err(err).Msg("shutdown error")
	}
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		return mysqlp.Connect(ctx, cfg.MySQLDSN(), cfg.Database.Pool)
	case "postgres":
		return pgp.Connect(ctx, cfg.PostgresDSN(), cfg.Database.Pool)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// newRepos returns a nil token repository when sealer is nil.
func newRepos(driver string, db *sql.DB, sealer *secure.Sealer) (domain.Repository, marketplace.TokenRepository) {
	var tokens marketplace.TokenRepository
	if driver == "postgres" {
		if sealer != nil {
			tokens = pgp.NewTokenRepository(db, sealer)
		}
		return pgp.NewAnalysisRepository(db), tokens
	}
	if sealer != nil {
		tokens = mysqlp.NewTokenRepository(db, sealer)
	}
	return mysqlp.NewAnalysisRepository(db), tokens
}

// newProviders registers only the families that have an API key.
func newProviders(ctx context.Context, cfg *config.Config) (map[domain.Family]domain.Provider, error) {
	providers := map[domain.Family]domain.Provider{}
	if k := cfg.AI.OpenAI.APIKey; k != "" {
		providers[domain.FamilyOpenAI] = openai.NewClient(domain.FamilyOpenAI, k, cfg.AI.OpenAI.BaseURL, cfg.AI.Timeout)
	}
	if k := cfg.AI.DeepSeek.APIKey; k != "" {
		providers[domain.FamilyDeepSeek] = openai.NewClient(domain.FamilyDeepSeek, k, cfg.AI.DeepSeek.BaseURL, cfg.AI.Timeout)
	}
	if k := cfg.AI.Gemini.APIKey; k != "" {
		g, err := gemini.NewClient(ctx, k, cfg.AI.Gemini.BaseURL, domain.ResolveModel(domain.FamilyGoogle, "").ProviderModel)
		if err != nil {
			return nil, err
		}
		providers[domain.FamilyGoogle] = g
	}
	return providers, nil
}
