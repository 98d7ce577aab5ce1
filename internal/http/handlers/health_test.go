package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("down") }

	cases := []struct {
		name   string
		probes []Probe
		want   int
	}{
		{"all ok", []Probe{{Name: "database", Required: true, Check: ok}}, http.StatusOK},
		{"optional down", []Probe{{Name: "database", Required: true, Check: ok}, {Name: "redis", Check: down}}, http.StatusOK},
		{"optional disabled", []Probe{{Name: "database", Required: true, Check: ok}, {Name: "neo4j"}}, http.StatusOK},
		{"database down", []Probe{{Name: "database", Required: true, Check: down}}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tc.probes...).HealthCheck)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}
