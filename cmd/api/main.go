package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"school-api/config"
	"school-api/internal/api"
	"school-api/internal/api/healthcheck"
	"school-api/internal/api/upload"
	"school-api/internal/core/retriever"
	"school-api/internal/core/security"
	"school-api/internal/database"
	"school-api/internal/middleware"
	adminsvc "school-api/internal/services/admin"
	authsvc "school-api/internal/services/auth"
	teachersvc "school-api/internal/services/teacher"
	"school-api/pkg/logger"
	pkgredis "school-api/pkg/redis"
	s3client "school-api/pkg/s3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		logger.Fatal(err, "failed to load config")
	}
	cfg := config.Cfg
	if err := logger.SetLevel(string(cfg.LogLevel)); err != nil {
		logger.Warn("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal(err, "%v: connect failed", config.ModuleDatabase)
	}
	defer database.Close(db)

	var (
		dbPing     healthcheck.Pinger = healthcheck.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })
		redisPing  healthcheck.Pinger
		milvusPing healthcheck.Pinger
		revoker    security.Revoker = security.NewMemoryRevoker()
		indexer    teachersvc.Indexer
		images     upload.ImageStore
	)

	if cfg.Redis.Address != "" {
		rdb, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal(err, "%v: connect failed", config.ModuleRedis)
		}
		defer rdb.Close()
		revoker = security.NewRedisRevoker(rdb)
		redisPing = healthcheck.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		logger.Warn("%v: no address configured, token revocation is kept in memory", config.ModuleRedis)
	}

	if cfg.Search.Enabled {
		embedder, err := retriever.NewEmbedder(cfg.OpenAI)
		if err != nil {
			logger.Fatal(err, "%v: embedder setup failed", config.ModuleRetriever)
		}
		store, err := retriever.ConnectWithRetry(ctx, cfg.Milvus, 5, 5*time.Second, 2*time.Second)
		if err != nil {
			logger.Fatal(err, "%v: connect failed", config.ModuleMilvus)
		}
		defer store.Close()
		if err := store.EnsureCollection(ctx); err != nil {
			logger.Fatal(err, "%v: ensure collection failed", config.ModuleMilvus)
		}
		indexer = retriever.NewIndex(embedder, store)
		milvusPing = store
	}

	serveImages := cfg.S3.Bucket == ""
	if serveImages {
		images = upload.NewLocalStore(cfg.Storage)
	} else {
		client, err := s3client.NewClient(ctx, cfg.S3)
		if err != nil {
			logger.Fatal(err, "%v: client setup failed", config.ModuleS3)
		}
		if err := s3client.EnsureBucket(ctx, client, cfg.S3.Bucket); err != nil {
			logger.Fatal(err, "%v: bucket setup failed", config.ModuleS3)
		}
		images = upload.NewS3Store(client, cfg.S3)
	}

	tokens, err := security.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal(err, "%v: token issuer setup failed", config.ModuleAuth)
	}
	hasher := security.NewHasher(cfg.Auth.BcryptCost)
	users := database.NewUserRepository(db)

	loginLimit := middleware.NewRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst)
	loginLimit.StartCleanup(ctx, 10*time.Minute)

	app := api.NewApp(cfg, api.Deps{
		Auth:        authsvc.NewService(users, hasher, tokens, revoker, authsvc.Options{AllowAdminRegistration: cfg.Auth.AllowAdminRegistration}),
		Teachers:    teachersvc.NewService(database.NewTeacherRepository(db), hasher, indexer, cfg.Search.TopK),
		Admins:      adminsvc.NewService(users),
		Images:      images,
		Health:      healthcheck.NewHandler(dbPing, redisPing, milvusPing),
		LoginLimit:  loginLimit,
		ServeImages: serveImages,
	})

	go func() {
		<-ctx.Done()
		logger.Info("%v: shutting down", config.ModuleServer)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error(err, "%v: shutdown failed", config.ModuleServer)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if err := app.Listen(addr); err != nil {
		logger.Error(err, "%v: server error", config.ModuleServer)
	}
}
