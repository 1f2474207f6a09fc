package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tune the postgres connection. Zero values fall back to defaults.
type Options struct {
	// Verbose logs every statement; otherwise only slow queries and errors.
	Verbose         bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func getLogger(verbose bool) logger.Interface {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  verbose,
		},
	)
}

func configureConnectionPool(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 10
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 50
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	return nil
}

// NewGormDBFromDSN opens postgres with driver errors translated, so unique
// violations surface as gorm.ErrDuplicatedKey.
func NewGormDBFromDSN(dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         getLogger(opts.Verbose),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, opts); err != nil {
		return nil, err
	}

	return db, nil
}
