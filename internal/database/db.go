package database

import (
	"context"
	"time"

	"school-api/config"
	"school-api/internal/database/model"
	"school-api/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Open connects to MySQL, applies pool settings and registers read replicas.
func Open(cfg config.Config) (*gorm.DB, error) {
	db, err := New(mysql.Open(cfg.Dns))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	lifetime := time.Duration(cfg.Database.MaxLifetime) * time.Minute
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxIdleTime(lifetime)
	sqlDB.SetConnMaxLifetime(lifetime)

	if len(cfg.Database.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.Database.Replicas))
		for _, dsn := range cfg.Database.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxIdleConns(cfg.Database.MaxIdleConns).
			SetMaxOpenConns(cfg.Database.MaxOpenConns).
			SetConnMaxIdleTime(lifetime).
			SetConnMaxLifetime(lifetime)
		if err := db.Use(resolver); err != nil {
			return nil, err
		}
		logger.Info("%v: %d read replica(s) registered", config.ModuleDatabase, len(replicas))
	}

	return db, nil
}

// New opens gorm on an arbitrary dialector with the settings every caller shares.
func New(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(logger.GetLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
}

// Ping checks that the primary connection is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.TeacherProfile{})
}

// Close releases the underlying pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error(err, "%v: failed to get database connection", config.ModuleDatabase)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error(err, "%v: close failed", config.ModuleDatabase)
	}
}
