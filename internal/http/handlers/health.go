package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency (postgres, redis) is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks       map[string]Check
	shuttingDown func() bool
}

// NewHealthHandler builds the probes. shuttingDown may be nil; once it reports
// true, Readyz fails so load balancers stop routing here while we drain.
func NewHealthHandler(checks map[string]Check, shuttingDown func() bool) *HealthHandler {
	return &HealthHandler{checks: checks, shuttingDown: shuttingDown}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.shuttingDown != nil && h.shuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	failing := make([]string, 0)
	for name, check := range h.checks {
		if err := check(cctx); err != nil {
			failing = append(failing, name)
		}
	}

	if len(failing) > 0 {
		sort.Strings(failing)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failing": failing})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
