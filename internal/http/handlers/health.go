package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one dependency. Required probes fail the health check; optional ones are reported.
type Probe struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

type HealthHandler struct {
	probes  []Probe
	timeout time.Duration
}

func NewHealthHandler(probes ...Probe) *HealthHandler {
	return &HealthHandler{probes: probes, timeout: 2 * time.Second}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := gin.H{}
	for _, p := range h.probes {
		if p.Check == nil {
			deps[p.Name] = "disabled"
			continue
		}
		if err := p.Check(ctx); err != nil {
			deps[p.Name] = "unavailable"
			if p.Required {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			continue
		}
		deps[p.Name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}
