package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/telemetry"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
	"go.uber.org/zap"
)

const defaultSwipeLimit = 20

// GetRandomAlbum returns one album picked for the current user
// GET /api/v1/recommendations/random
// Query params: ?mode=smart (smart, discovery, quality, pure-random)
func (h *Handlers) GetRandomAlbum(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	mode := c.DefaultQuery("mode", string(recommend.ModeSmart))
	if _, err := recommend.ParseMode(mode); err != nil {
		util.RespondValidationError(c, "mode", "mode must be one of smart, discovery, quality, pure-random")
		return
	}
	if !h.requireEligible(c, userID) {
		return
	}

	ctx, span := h.kernel.Events().TraceRecommendation(c.Request.Context(), userID, telemetry.RecommendationAttrs{
		Flow: "random",
		Mode: mode,
	})
	defer span.End()

	start := time.Now()
	pick, err := h.kernel.Engine().GetRandomAlbum(ctx, userID, mode)
	if err != nil {
		h.kernel.Events().RecordError(span, err)
		logEngineError(err, "random", userID)
		util.RespondEngineError(c, err)
		return
	}
	h.kernel.Events().RecordRecommendationResult(span, 1, 0)
	logger.Log.Debug("Random album served",
		logger.WithUserID(userID),
		logger.WithMode(string(pick.Mode)),
		logger.WithPool(string(pick.Pool)),
		logger.WithDuration(time.Since(start)),
	)

	h.kernel.Tracker().RecordImpressionsAsync(userID, "random", string(pick.Mode), []recommend.ScoredCandidate{{
		CandidateAlbum: pick.Album,
		Score:          float64(pick.Score) / 100,
		Breakdown:      pick.Breakdown,
		Pool:           pick.Pool,
		Reason:         pick.Reason,
	}})

	c.JSON(http.StatusOK, gin.H{
		"eligible":   true,
		"album":      pick.Album,
		"pool":       pick.Pool,
		"reason":     pick.Reason,
		"score":      pick.Score,
		"breakdown":  pick.Breakdown,
		"mode":       pick.Mode,
		"user_stats": pick.UserStats,
	})
}

// GetSwipeBatch returns a ranked, pool-interleaved batch for the swipe UI
// GET /api/v1/recommendations/swipe
// Query params: ?limit=20&onboarding=false
func (h *Handlers) GetSwipeBatch(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	maxLimit := h.kernel.Engine().Config().MaxBatchSize
	limit := util.ParseInt(c.Query("limit"), defaultSwipeLimit)
	if limit < 1 || limit > maxLimit {
		util.RespondValidationError(c, "limit", fmt.Sprintf("limit must be between 1 and %d", maxLimit))
		return
	}
	onboarding := util.ParseBool(c.Query("onboarding"), false)
	if !onboarding && !h.requireEligible(c, userID) {
		return
	}

	ctx, span := h.kernel.Events().TraceRecommendation(c.Request.Context(), userID, telemetry.RecommendationAttrs{
		Flow:       "swipe",
		Limit:      limit,
		Onboarding: onboarding,
	})
	defer span.End()

	batch, err := h.kernel.Engine().GetSwipeBatch(ctx, userID, limit, onboarding)
	if err != nil {
		h.kernel.Events().RecordError(span, err)
		logEngineError(err, "swipe", userID)
		util.RespondEngineError(c, err)
		return
	}
	h.kernel.Events().RecordRecommendationResult(span, len(batch.Albums), len(batch.Degraded))

	flow := "swipe"
	if batch.Onboarding {
		flow = "onboarding"
	}
	h.kernel.Tracker().RecordImpressionsAsync(userID, flow, "", batch.Albums)

	c.JSON(http.StatusOK, gin.H{
		"albums":         batch.Albums,
		"count":          len(batch.Albums),
		"onboarding":     batch.Onboarding,
		"pool_counts":    batch.PoolCounts,
		"degraded_pools": batch.Degraded,
	})
}

// GetCompatibility compares the current user's taste with another user's
// GET /api/v1/recommendations/compatibility/:user_id
func (h *Handlers) GetCompatibility(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	otherID := c.Param("user_id")
	if otherID == "" {
		util.RespondBadRequest(c, "user_id is required")
		return
	}
	if otherID == userID {
		util.RespondValidationError(c, "user_id", "cannot compare a user with themselves")
		return
	}
	if !h.requireEligible(c, userID) {
		return
	}

	ctx, span := h.kernel.Events().TraceRecommendation(c.Request.Context(), userID, telemetry.RecommendationAttrs{
		Flow: "compatibility",
	})
	defer span.End()

	result, err := h.kernel.Engine().GetCompatibility(ctx, userID, otherID)
	if err != nil {
		h.kernel.Events().RecordError(span, err)
		logEngineError(err, "compatibility", userID)
		util.RespondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"eligible":      true,
		"compatibility": result,
	})
}

// GetTasteProfile returns the current user's taste profile
// GET /api/v1/recommendations/profile
func (h *Handlers) GetTasteProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	profile, err := h.kernel.Engine().GetTasteProfile(c.Request.Context(), userID)
	if err != nil {
		logEngineError(err, "profile", userID)
		util.RespondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":  profile,
		"eligible": profile.ReviewCount >= h.kernel.Engine().Config().EligibilityMinReviews,
	})
}

// logEngineError logs unexpected engine failures; precondition and empty
// results are ordinary outcomes and only logged at debug
func logEngineError(err error, flow, userID string) {
	if recommend.IsEngineError(err) {
		logger.Log.Debug("Recommendation not served",
			zap.String("flow", flow),
			logger.WithUserID(userID),
			zap.Error(err),
		)
		return
	}
	logger.Log.Error("Recommendation failed",
		zap.String("flow", flow),
		logger.WithUserID(userID),
		zap.Error(err),
	)
}
