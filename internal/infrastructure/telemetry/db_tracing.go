package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the GORM tracing plugin
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in span statements. Development only.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns a disabled configuration with a 200ms
// slow threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm and annotates its spans with ledger
// specific facts: slow statements, row-locking reads, and guarded updates
// that matched no row.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a plugin; nothing is registered until
// RegisterOtelGorm is called
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type startKey struct{}

// RegisterOtelGorm installs otelgorm on db and adds timing callbacks around
// every statement kind
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// Timing hooks wrap the otelgorm ones so annotate still sees the
	// statement span and the start time before otelgorm ends the span.
	cb := db.Callback()
	hooks := []struct {
		kind   string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("otel:before:create").Register, cb.Create().Before("otel:after:create").Register},
		{"query", cb.Query().Before("otel:before:select").Register, cb.Query().Before("otel:after:select").Register},
		{"update", cb.Update().Before("otel:before:update").Register, cb.Update().Before("otel:after:update").Register},
		{"delete", cb.Delete().Before("otel:before:delete").Register, cb.Delete().Before("otel:after:delete").Register},
		{"row", cb.Row().Before("otel:before:row").Register, cb.Row().Before("otel:after:row").Register},
		{"raw", cb.Raw().Before("otel:before:raw").Register, cb.Raw().Before("otel:after:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("ledger_timing:before_"+h.kind, markStart); err != nil {
			return err
		}
		if err := h.after("ledger_timing:after_"+h.kind, p.annotate); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, startKey{}, time.Now())
	}
}

// annotate runs after each statement and decorates the active span
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	stmt := db.Statement
	if stmt.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", stmt.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", stmt.RowsAffected))

	sql := strings.ToUpper(stmt.SQL.String())
	if strings.Contains(sql, "FOR UPDATE") {
		span.SetAttributes(attribute.Bool("db.row_lock", true))
	}
	if db.Error == nil && stmt.RowsAffected == 0 && strings.HasPrefix(sql, "UPDATE") {
		span.AddEvent("guarded_update_no_match")
	}

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
