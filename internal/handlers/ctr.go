package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/tracking"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
)

// GetCTRMetrics returns click-through rate per candidate pool
// GET /api/v1/recommendations/ctr
// Query params: ?since=24h (Go duration or Nd, default 24h)
func (h *Handlers) GetCTRMetrics(c *gin.Context) {
	since := util.ParseSince(c.Query("since"), time.Now().UTC(), 24*time.Hour)

	metrics, err := tracking.CalculateCTR(c.Request.Context(), h.kernel.DB(), since)
	if err != nil {
		util.RespondInternalError(c, "failed to calculate CTR")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": metrics,
		"since":   since,
	})
}
