package database

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Setup opens the MySQL connection, configures the bounded connection pool
// and migrates the payments schema. The returned handle is the single pool
// object for the process; callers pass it down explicitly instead of going
// through package state.
func Setup() (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	var db *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
		}), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err == nil {
			break
		}

		logger.L().Warn("failed to connect to database",
			zap.Int("try", i+1),
			zap.Int("max_tries", maxRetries),
			zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}

	if err := configurePool(db); err != nil {
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// configurePool bounds the number of live connections. Acquisition blocks
// until a connection frees up or the statement context expires.
func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}

	poolSize, err := strconv.Atoi(env.GetEnv("DB_POOL_SIZE", "5"))
	if err != nil || poolSize < 1 {
		poolSize = 5
	}

	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(poolSize)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

// EnsureSchema creates the payments table if it does not exist. Safe to run
// repeatedly.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Payment{}); err != nil {
		return fmt.Errorf("migrate payments: %w", err)
	}
	return nil
}
