package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("warehouse-api", "1.2.3", nil)
	c, w := newTestContext(t)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "warehouse-api", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestSystemHandler_Ready(t *testing.T) {
	var seenDeadline bool
	h := NewSystemHandler("warehouse-api", "dev", map[string]HealthCheck{
		"database": func(ctx context.Context) error {
			_, seenDeadline = ctx.Deadline()
			return nil
		},
	})
	c, w := newTestContext(t)

	h.Ready(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seenDeadline)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "ok", data["status"])
}

func TestSystemHandler_ReadyFailing(t *testing.T) {
	h := NewSystemHandler("warehouse-api", "dev", map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	c, w := newTestContext(t)

	h.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	checks := resp.Data.(map[string]any)["checks"].(map[string]any)
	assert.Equal(t, "dial tcp: refused", checks["redis"])
}
