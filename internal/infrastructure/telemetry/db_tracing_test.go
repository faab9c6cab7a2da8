package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedLocation struct {
	ID              uint   `gorm:"primaryKey"`
	Location        string `gorm:"size:50"`
	CurrentCapacity int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedLocation{}))
	return db
}

func setupGlobalRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	sr := setupGlobalRecorder(t)
	require.NoError(t, db.Create(&tracedLocation{Location: "A-01", CurrentCapacity: 2}).Error)
	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_RecordsGuardedUpdate(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	ctx, parent := StartServiceSpan(context.Background(), "location", "reserve")
	loc := tracedLocation{Location: "A-01", CurrentCapacity: 1}
	require.NoError(t, db.WithContext(ctx).Create(&loc).Error)

	res := db.WithContext(ctx).Model(&tracedLocation{}).
		Where("id = ? AND current_capacity > 0", loc.ID).
		Update("current_capacity", gorm.Expr("current_capacity - 1"))
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)
	parent.End()

	spans := sr.Ended()
	assert.GreaterOrEqual(t, len(spans), 3, "expected insert, update and parent spans")
	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, parent.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
}

// tracedDB opens a test database with the plugin registered on it
func tracedDB(t *testing.T, cfg DBTracingConfig) *gorm.DB {
	t.Helper()
	db := setupTestDB(t)
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))
	return db
}

// spanWithEvent returns the first ended span carrying the named event
func spanWithEvent(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		for _, e := range s.Events() {
			if e.Name == name {
				return s
			}
		}
	}
	return nil
}

func TestDBTracingPlugin_SlowQueryCallback(t *testing.T) {
	sr := setupGlobalRecorder(t)
	cfg := DefaultDBTracingConfig()
	cfg.SlowQueryThresh = time.Nanosecond
	db := tracedDB(t, cfg)

	ctx, span := StartSpan(context.Background(), "location.list")
	var rows []tracedLocation
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	slowSpan := spanWithEvent(sr.Ended(), "slow_query_warning")
	require.NotNil(t, slowSpan, "statement span should carry the slow query event")
	assert.NotEqual(t, span.SpanContext().SpanID(), slowSpan.SpanContext().SpanID())
	var slow bool
	for _, a := range slowSpan.Attributes() {
		if a.Key == attribute.Key("db.slow_query") && a.Value.AsBool() {
			slow = true
		}
	}
	assert.True(t, slow)
}

func TestDBTracingPlugin_RecordNotFoundIsNotAnError(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := tracedDB(t, DefaultDBTracingConfig())

	ctx, span := StartSpan(context.Background(), "location.get")
	var loc tracedLocation
	require.ErrorIs(t, db.WithContext(ctx).First(&loc, 999).Error, gorm.ErrRecordNotFound)
	span.End()

	spans := sr.Ended()
	require.GreaterOrEqual(t, len(spans), 2, "expected select and parent spans")
	for _, s := range spans {
		assert.NotEqual(t, codes.Error, s.Status().Code, s.Name())
	}
}

func TestDBTracingPlugin_FlagsUnmatchedGuardedUpdate(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := tracedDB(t, DefaultDBTracingConfig())

	loc := tracedLocation{Location: "A-02", CurrentCapacity: 0}
	require.NoError(t, db.Create(&loc).Error)

	ctx, span := StartSpan(context.Background(), "location.reserve")
	res := db.WithContext(ctx).Model(&tracedLocation{}).
		Where("id = ? AND current_capacity > 0", loc.ID).
		Update("current_capacity", gorm.Expr("current_capacity - 1"))
	require.NoError(t, res.Error)
	assert.Zero(t, res.RowsAffected)
	span.End()

	flagged := spanWithEvent(sr.Ended(), "guarded_update_no_match")
	require.NotNil(t, flagged, "update span should carry the no-match event")
	assert.Equal(t, span.SpanContext().TraceID(), flagged.SpanContext().TraceID())
}

func TestDBTracingPlugin_MatchedUpdateIsNotFlagged(t *testing.T) {
	sr := setupGlobalRecorder(t)
	db := tracedDB(t, DefaultDBTracingConfig())

	loc := tracedLocation{Location: "A-03", CurrentCapacity: 1}
	require.NoError(t, db.Create(&loc).Error)

	res := db.WithContext(context.Background()).Model(&tracedLocation{}).
		Where("id = ? AND current_capacity > 0", loc.ID).
		Update("current_capacity", gorm.Expr("current_capacity - 1"))
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	assert.Nil(t, spanWithEvent(sr.Ended(), "guarded_update_no_match"))
}
