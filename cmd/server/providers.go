package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/infrastructure/classifier"
	"github.com/janhq/image-upload/internal/infrastructure/database"
	"github.com/janhq/image-upload/internal/infrastructure/ledger"
	"github.com/janhq/image-upload/internal/infrastructure/logger"
	"github.com/janhq/image-upload/internal/infrastructure/storage"
)

func provideLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(cfg.LogLevel, cfg.ServiceName, cfg.Environment)
}

func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage.S3Storage, error) {
	return storage.NewS3Storage(ctx, storage.Options{
		Bucket:       cfg.S3Bucket,
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		AccessKeyID:  cfg.S3AccessKeyID,
		SecretKey:    cfg.S3SecretKey,
		UsePathStyle: cfg.S3UsePathStyle,
	}, log)
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

// provideLedger selects the duplicate ledger backend. The returned cleanup is never nil.
func provideLedger(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tagging.Ledger, func(), error) {
	ledgerLog := log.With().Str("component", "ledger").Str("backend", cfg.Ledger()).Logger()

	switch cfg.Ledger() {
	case "memory":
		return ledger.NewMemory(), func() {}, nil
	case "redis":
		redisLedger, err := ledger.NewRedis(cfg.RedisURL, ledger.DefaultRedisTTL)
		if err != nil {
			return nil, nil, err
		}
		if err := redisLedger.Ping(ctx); err != nil {
			_ = redisLedger.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisLedger, func() {
			if err := redisLedger.Close(); err != nil {
				ledgerLog.Warn().Err(err).Msg("close redis ledger")
			}
		}, nil
	case "postgres":
		db, err := database.Connect(newDatabaseConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, nil, err
		}
		return ledger.NewPostgres(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported ledger backend %q", cfg.LedgerBackend)
	}
}

// provideLocker returns a Redis lock for enrichment when replicas share a Redis ledger,
// otherwise nil.
func provideLocker(cfg *config.Config, log zerolog.Logger) (tagging.Locker, func(), error) {
	if cfg.Ledger() != "redis" {
		return nil, func() {}, nil
	}
	locker, err := ledger.NewRedisLocker(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return locker, func() {
		if err := locker.Close(); err != nil {
			log.Warn().Err(err).Msg("close enrichment locker")
		}
	}, nil
}

// provideClassifier returns a nil Classifier when enrichment is disabled.
func provideClassifier(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tagging.Classifier, error) {
	if !cfg.ClassifierEnabled {
		return nil, nil
	}
	rekognition, err := classifier.NewRekognition(ctx, classifier.Options{
		Region:        cfg.S3Region,
		AccessKeyID:   cfg.S3AccessKeyID,
		SecretKey:     cfg.S3SecretKey,
		MaxLabels:     cfg.MaxLabels,
		MinConfidence: cfg.MinConfidence,
	}, log)
	if err != nil {
		return nil, err
	}
	return rekognition, nil
}
