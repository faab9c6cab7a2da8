package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statements to zap. Row-locking reads get their own
// slow threshold: under contention they wait on other ledger transactions.
type GormLogger struct {
	logger         *zap.Logger
	level          gormlogger.LogLevel
	slow           time.Duration
	lockWait       time.Duration
	ignoreNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration after which a statement is logged as slow
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithLockWaitThreshold sets the slow threshold for SELECT ... FOR UPDATE
func WithLockWaitThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.lockWait = threshold }
}

// WithIgnoreRecordNotFoundError controls whether lookups of missing rows are logged
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.ignoreNotFound = ignore }
}

// NewGormLogger creates a GORM logger writing under the "gorm" name
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:         zapLogger.Named("gorm"),
		level:          level,
		slow:           200 * time.Millisecond,
		lockWait:       2 * time.Second,
		ignoreNotFound: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zap.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zap.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zap.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.logger.Sugar().Logf(lvl, msg, data...)
}

// Trace implements gormlogger.Interface. A guarded UPDATE matching no row
// is not an error here; the repository turns it into a domain error.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && l.ignoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	locking := isLockingRead(sql)

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if locking {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	threshold := l.slow
	if locking {
		threshold = l.lockWait
	}

	switch {
	case err != nil:
		if l.level >= gormlogger.Error {
			l.logger.Error("SQL Error", append(fields, zap.Error(err))...)
		}
	case threshold > 0 && elapsed > threshold && l.level >= gormlogger.Warn:
		if locking {
			l.logger.Warn("Slow row lock wait", append(fields, zap.Duration("threshold", threshold))...)
		} else {
			l.logger.Warn("Slow SQL", append(fields, zap.Duration("threshold", threshold))...)
		}
	case l.level >= gormlogger.Info:
		l.logger.Debug("SQL Query", fields...)
	}
}

func isLockingRead(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
}

// MapGormLogLevel maps the application log level to a GORM log level.
// Only debug logging emits every statement.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
