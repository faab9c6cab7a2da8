package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
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

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "pallet", "create",
		telemetry.WithAttribute(telemetry.SpanAttrPalletID, int64(42)),
		telemetry.WithAttribute("pallet_number", "P-1"),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pallet.create", spans[0].Name())

	v, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrPalletID)
	require.True(t, ok)
	assert.Equal(t, int64(42), v.AsInt64())
	v, ok = attrValue(spans[0].Attributes(), "pallet_number")
	require.True(t, ok)
	assert.Equal(t, "P-1", v.AsString())
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "shipment", "create")
	_, child := telemetry.StartSpan(ctx, "location.reserve")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, telemetry.GetTraceID(ctx), spans[1].SpanContext().TraceID().String())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "shipment.update")
	telemetry.RecordError(span, errors.New("quantity exceeded"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "quantity exceeded", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestRecordError_TagsDomainCode(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "location.reserve")
	err := fmt.Errorf("reserve: %w", shared.NewDomainError(shared.CodeNoCapacity, "location is full"))
	telemetry.RecordError(span, err)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	v, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrErrorCode)
	require.True(t, ok)
	assert.Equal(t, shared.CodeNoCapacity, v.AsString())
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "shipment.create")
	telemetry.SetAttributes(span, telemetry.SpanAttrShipmentID, int64(3), 42, "dropped", "status", "WORKING")
	span.End()

	attrs := sr.Ended()[0].Attributes()
	v, ok := attrValue(attrs, telemetry.SpanAttrShipmentID)
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	v, ok = attrValue(attrs, "status")
	require.True(t, ok)
	assert.Equal(t, "WORKING", v.AsString())
	assert.Len(t, attrs, 2)
}

func TestRecordError_NilIsNoop(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "noop")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(nil, errors.New("ignored"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestSetOKAndAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "location.reserve")
	telemetry.AddEvent(span, "slot_reserved", telemetry.SpanAttrLocationID, int64(7))
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	v, ok := attrValue(spans[0].Events()[0].Attributes, telemetry.SpanAttrLocationID)
	require.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt64())
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}
