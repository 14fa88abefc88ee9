package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-billing-api/internal/models"
	"github.com/noah-isme/edu-billing-api/internal/service"
)

type groupServiceMock struct {
	invalidated []string
}

func (m *groupServiceMock) Get(_ context.Context, id string) (*models.Group, error) {
	return &models.Group{ID: id, Name: "English A1"}, nil
}

func (m *groupServiceMock) Invalidate(_ context.Context, id string) {
	m.invalidated = append(m.invalidated, id)
}

func TestHealthHandlerReady(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := NewHealthHandler(nil, map[string]ReadinessCheck{"postgres": up, "redis": up}, nil)
	c, w := newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	h = NewHealthHandler(nil, map[string]ReadinessCheck{"postgres": up, "redis": down}, nil)
	c, w = newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"postgres": "up", "redis": "down"}, body.Checks)
}

func TestHealthHandlerMetrics(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	c, w := newContext(http.MethodGet, "/metrics", nil, nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h = NewHealthHandler(service.NewMetricsService(), nil, nil)
	c, w = newContext(http.MethodGet, "/metrics", nil, nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")

	c, w = newContext(http.MethodGet, "/health", nil, nil)
	h.Health(c)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGroupHandler(t *testing.T) {
	svc := &groupServiceMock{}
	h := NewGroupHandler(svc)

	c, w := newContext(http.MethodGet, "/groups/grp-1", nil, idParam("grp-1"))
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "English A1")

	c, w = newContext(http.MethodDelete, "/groups/grp-1/cache", nil, idParam("grp-1"))
	h.InvalidateCache(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"grp-1"}, svc.invalidated)
}
