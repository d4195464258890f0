package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	httpapi "github.com/yourorg/hoa-scout/http"
	"github.com/yourorg/hoa-scout/internal/cities"
	"github.com/yourorg/hoa-scout/internal/metrics"
	"go.uber.org/zap/zaptest"
)

func testRouter(t *testing.T, ping func(context.Context) error, limit int) http.Handler {
	log := zaptest.NewLogger(t)
	m := metrics.New()
	cc := cities.New(func(context.Context) ([]string, error) { return []string{"Boise", "Austin"}, nil }, 0)
	return BuildRouter(RouterDeps{
		Log:                log,
		Metrics:            m,
		RateLimitPerMinute: limit,
		Ping:               ping,
		Cities:             httpapi.CitiesDeps{Cities: cc, Metrics: m, Log: log},
	})
}

func TestRouter_Health(t *testing.T) {
	r := testRouter(t, func(context.Context) error { return nil }, 0)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	r = testRouter(t, func(context.Context) error { return errors.New("down") }, 0)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CitiesAndMetrics(t *testing.T) {
	r := testRouter(t, nil, 0)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cities", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `hoa_scout_cities_cache_requests_total{result="hit"} 1`), body)
	assert.True(t, strings.Contains(body, `hoa_scout_cities_cache_requests_total{result="miss"} 1`), body)
}

func TestRouter_RateLimitsAPI(t *testing.T) {
	r := testRouter(t, nil, 2)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/cities", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
