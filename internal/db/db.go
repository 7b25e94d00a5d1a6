package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectTimeout bounds the total time spent retrying the first connection.
const ConnectTimeout = 2 * time.Minute

// Connect opens the gorm pool and pings it, retrying with exponential
// backoff while the database is not reachable yet.
func Connect(ctx context.Context, dsn string, log *logrus.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	// SQL + timings at debug level, slow queries always
	lvl := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		lvl = logger.Info
	}
	lg := logger.New(log, logger.Config{
		SlowThreshold:             100 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})

	var conn *gorm.DB
	open := func() error {
		d, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: lg})
		if err != nil {
			return err
		}
		sqlDB, err := d.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return err
		}

		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)

		conn = d
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = ConnectTimeout
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithField("retry_in", wait.String()).Warn("database not reachable")
	}
	if err := backoff.RetryNotify(open, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info("Connected to database")
	return conn, nil
}

// Close releases the pool behind d.
func Close(d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
