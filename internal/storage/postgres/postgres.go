// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/pumpbot/internal/storage"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// migrationLockID guards AutoMigrate when several replicas start together.
const migrationLockID = 7_210_101

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectTimeout time.Duration
}

// gormLogger routes GORM logging through zap.
type gormLogger struct {
	zapLogger     *zap.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger:     zapLogger,
		logLevel:      logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= logger.Error:
		l.zapLogger.Error("query failed", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		l.zapLogger.Warn("slow query", fields...)
	case l.logLevel >= logger.Info:
		l.zapLogger.Debug("query", fields...)
	}
}

// Store is the PostgreSQL implementation of storage.Store.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Connect opens the database, retrying with exponential backoff until it
// answers a ping or ConnectTimeout elapses, then runs migrations.
func Connect(ctx context.Context, dsn string, opts Options, zapLogger *zap.Logger) (*Store, error) {
	log := zapLogger.Named("postgres")
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Database not ready, retrying",
				zap.Error(err),
				zap.Duration("next_attempt", next))
		}),
	}
	if opts.ConnectTimeout > 0 {
		retryOpts = append(retryOpts, backoff.WithMaxElapsedTime(opts.ConnectTimeout))
	}

	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	}, retryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: log}
	if err := s.RunMigrations(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("Connected to database")
	return s, nil
}

// RunMigrations applies the schema under a session advisory lock.
func (s *Store) RunMigrations(ctx context.Context) error {
	conn, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	// advisory locks are per session, so pin one connection
	sqlConn, err := conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer sqlConn.Close()

	if _, err := sqlConn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := sqlConn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			s.logger.Warn("Failed to release migration lock", zap.Error(err))
		}
	}()

	if err := s.db.WithContext(ctx).AutoMigrate(&models.TokenLaunch{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec *models.TokenLaunch) error {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return fmt.Errorf("failed to insert token launch: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrDuplicate
	}
	return nil
}

func (s *Store) Get(ctx context.Context, address string) (*models.TokenLaunch, error) {
	return s.first(ctx, "address = ?", address)
}

func (s *Store) FindByPostID(ctx context.Context, postID string) (*models.TokenLaunch, error) {
	return s.first(ctx, "post_id = ?", postID)
}

func (s *Store) first(ctx context.Context, query string, arg interface{}) (*models.TokenLaunch, error) {
	var rec models.TokenLaunch
	err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load token launch: %w", err)
	}
	return &rec, nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*models.TokenLaunch, int64, error) {
	column, err := opts.Sort.Column()
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.TokenLaunch{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count token launches: %w", err)
	}

	var recs []*models.TokenLaunch
	err = s.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: opts.Descending}).
		Order("address").
		Offset(opts.Offset).
		Limit(opts.Limit).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list token launches: %w", err)
	}
	return recs, total, nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]*models.TokenLaunch, error) {
	var recs []*models.TokenLaunch
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent launches: %w", err)
	}
	return recs, nil
}

func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.db.WithContext(ctx).
		Model(&models.TokenLaunch{}).
		Select("COUNT(*) AS total_launches, COALESCE(SUM(volume24h), 0) AS total_volume, COUNT(DISTINCT agent_wallet) AS active_agents").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return &stats, nil
}

func (s *Store) ListActive(ctx context.Context, limit int) ([]*models.TokenLaunch, error) {
	var recs []*models.TokenLaunch
	err := s.db.WithContext(ctx).
		Where("graduated = ? AND bonding_curve_address <> ''", false).
		Order("updated_at asc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active launches: %w", err)
	}
	return recs, nil
}

// UpdateMarket applies the update inside a row lock so the graduation
// timestamp is written once.
func (s *Store) UpdateMarket(ctx context.Context, address string, update models.MarketUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.TokenLaunch
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ?", address).
			First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to lock token launch: %w", err)
		}

		rec.ApplyMarket(update, time.Now())
		return tx.Model(&rec).Select(
			"current_price", "market_cap", "bonding_progress", "graduated", "graduated_at", "updated_at",
		).Updates(&rec).Error
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ storage.Store = (*Store)(nil)
