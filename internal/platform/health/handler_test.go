package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLiveness(t *testing.T) {
	h := New("test")

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	h.HandleLiveness(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
}

func TestHandleReadiness(t *testing.T) {
	t.Run("all checks healthy", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func() error { return nil })
		h.RegisterCheck("redis", func() error { return nil })

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()
		h.HandleReadiness(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "up", resp.Checks["postgres"])
		assert.Equal(t, "up", resp.Checks["redis"])
	})

	t.Run("failing check returns 503", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func() error { return errors.New("connection refused") })

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()
		h.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Contains(t, resp.Checks["postgres"], "down")
	})
}

func TestHandleStatus(t *testing.T) {
	h := New("staging")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HandleStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "staging", resp.Environment)
}
