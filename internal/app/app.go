// Package app assembles the stores shared by the server and riskctl.
package app

import (
	"context"
	"errors"
	"time"

	"riskgate/internal/config"
	"riskgate/internal/handlers"
	"riskgate/internal/repositories"
	"riskgate/internal/repositories/cache"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Stores holds the open postgres pool and, when configured, the redis flags.
type Stores struct {
	DB    *gorm.DB
	Flags *cache.RedisFlags

	TransactionLog repositories.TransactionLogRepository
	Results        repositories.ResultsRepository
}

// OpenStores connects to postgres and optionally redis. The transaction log is
// wrapped in the chargeback cache when redis is enabled.
func OpenStores(cfg config.Config, log zerolog.Logger) (*Stores, error) {
	db, err := repositories.NewPostgres(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Name).
		Int("max_open_conns", cfg.Database.MaxOpenConns).
		Msg("connected to database with connection pooling")

	s := &Stores{
		DB:             db,
		TransactionLog: repositories.NewTransactionLogRepository(db),
		Results:        repositories.NewResultsRepository(db),
	}

	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(&cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.Flags = cache.NewRedisFlags(client)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Flags.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, chargeback lookups will use postgres")
		} else {
			log.Info().Str("host", cfg.Redis.Host).Msg("redis chargeback cache enabled")
		}
		s.TransactionLog = cache.NewChargebackLog(s.TransactionLog, s.Flags, cfg.Redis.TTL, log)
	}

	return s, nil
}

// HealthChecks returns one checker per configured backing service.
func (s *Stores) HealthChecks() map[string]handlers.Checker {
	checks := map[string]handlers.Checker{
		"database": func(ctx context.Context) error {
			sqlDB, err := s.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if s.Flags != nil {
		checks["redis"] = s.Flags.HealthCheck
	}
	return checks
}

// LogPoolStats logs pool statistics every interval until ctx is done.
func (s *Stores) LogPoolStats(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	sqlDB, err := s.DB.DB()
	if err != nil {
		log.Warn().Err(err).Msg("pool stats unavailable")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			log.Info().
				Int("open", stats.OpenConnections).
				Int("idle", stats.Idle).
				Int("in_use", stats.InUse).
				Int64("wait_count", stats.WaitCount).
				Dur("wait_duration", stats.WaitDuration).
				Msg("db stats")
		}
	}
}

// Close releases postgres and redis.
func (s *Stores) Close() error {
	var errs []error
	if s.Flags != nil {
		errs = append(errs, s.Flags.Close())
	}
	errs = append(errs, repositories.Close(s.DB))
	return errors.Join(errs...)
}
