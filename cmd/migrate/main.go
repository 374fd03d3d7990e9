package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"school-api/config"
	"school-api/internal/core/retriever"
	"school-api/internal/core/security"
	"school-api/internal/database"
	"school-api/internal/database/model"
	"school-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	adminEmail := flag.String("admin-email", "", "create an admin with this email if it does not exist")
	adminPassword := flag.String("admin-password", os.Getenv("APP_SEED_ADMIN_PASSWORD"), "password for -admin-email")
	skipMilvus := flag.Bool("skip-milvus", false, "do not create the search collection")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		logger.Fatal(err, "failed to load config")
	}
	cfg := config.Cfg
	if err := logger.SetLevel(string(cfg.LogLevel)); err != nil {
		logger.Warn("%v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal(err, "%v: connect failed", config.ModuleDatabase)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Fatal(err, "%v: migration failed", config.ModuleDatabase)
	}
	logger.Info("%v: schema migrated", config.ModuleDatabase)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *adminEmail != "" {
		if err := seedAdmin(ctx, database.NewUserRepository(db), cfg.Auth, *adminEmail, *adminPassword); err != nil {
			logger.Fatal(err, "seed admin failed")
		}
	}

	if cfg.Search.Enabled && !*skipMilvus {
		store, err := retriever.ConnectWithRetry(ctx, cfg.Milvus, 20, 5*time.Second, 2*time.Second)
		if err != nil {
			logger.Fatal(err, "%v: connect failed", config.ModuleMilvus)
		}
		defer store.Close()

		if err := store.EnsureCollection(ctx); err != nil {
			logger.Fatal(err, "%v: ensure collection failed", config.ModuleMilvus)
		}
		logger.Info("%v: collection %s ready", config.ModuleMilvus, cfg.Milvus.Collection)
	}
}

func seedAdmin(ctx context.Context, users *database.UserRepository, auth config.AuthConfig, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := users.GetByEmail(ctx, email); err == nil {
		logger.Info("admin %s already exists", email)
		return nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	if err := security.ValidatePasswordStrength(password); err != nil {
		return err
	}
	hash, err := security.NewHasher(auth.BcryptCost).Hash(password)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}); err != nil {
		return err
	}
	logger.Info("admin %s created", email)
	return nil
}
