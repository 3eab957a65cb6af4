package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/kernel"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/middleware"
)

// Handlers contains all HTTP handlers for the recommendation API
type Handlers struct {
	kernel *kernel.Kernel
}

// NewHandlers creates a new handlers instance
func NewHandlers(k *kernel.Kernel) *Handlers {
	return &Handlers{kernel: k}
}

// RegisterRoutes mounts the recommendation routes on api. Every route
// requires a bearer token; the compute-heavy reads share a tighter limit
// than the feedback writes.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	recs := api.Group("/recommendations")
	recs.Use(middleware.RequireAuth(h.kernel.Tokens()))

	reads := recs.Group("")
	reads.Use(middleware.RateLimitSmart(middleware.RecommendationRateLimitConfig()))
	{
		reads.GET("/random", h.GetRandomAlbum)
		reads.GET("/swipe", h.GetSwipeBatch)
		reads.GET("/compatibility/:user_id", h.GetCompatibility)
		reads.GET("/profile", h.GetTasteProfile)
		reads.GET("/ctr", h.GetCTRMetrics)
	}

	writes := recs.Group("")
	writes.Use(middleware.RateLimitSmart(middleware.FeedbackRateLimitConfig()))
	{
		writes.PUT("/settings", h.UpdateSettings)
		writes.POST("/:album_id/skip", h.SkipAlbum)
		writes.POST("/:album_id/click", h.TrackClick)
	}
}
