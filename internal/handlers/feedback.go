package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/middleware"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/repository"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
	"go.uber.org/zap"
)

// SkipAlbum records that the user dismissed an album
// POST /api/v1/recommendations/:album_id/skip
// Body: {"reason": "not_interested" | "already_know" | "not_now"} (optional)
func (h *Handlers) SkipAlbum(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	albumID := c.Param("album_id")

	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, "invalid request body")
			return
		}
	}

	ctx, span := h.kernel.Events().TraceFeedback(c.Request.Context(), "skip", userID, albumID)
	defer span.End()

	event, err := h.kernel.History().RecordSkip(ctx, userID, albumID, recommend.SkipReason(req.Reason))
	switch {
	case errors.Is(err, repository.ErrAlbumNotFound):
		util.RespondNotFound(c, "album")
		return
	case errors.Is(err, repository.ErrInvalidInput):
		util.RespondValidationError(c, "reason", "reason must be one of not_interested, already_know, not_now")
		return
	case err != nil:
		h.kernel.Events().RecordError(span, err)
		logger.Log.Error("Failed to record skip", logger.WithUserID(userID), logger.WithAlbumID(albumID), zap.Error(err))
		util.RespondInternalError(c, "failed to record skip")
		return
	}

	middleware.RecordFeedback("skip", req.Reason)
	h.kernel.ProfileCache().InvalidateProfile(ctx, userID)

	c.JSON(http.StatusOK, gin.H{
		"status":    "skip_recorded",
		"album_id":  albumID,
		"reason":    event.Reason,
		"permanent": recommend.SkipReason(event.Reason).Permanent(),
	})
}

// TrackClick records that the user opened a recommended album
// POST /api/v1/recommendations/:album_id/click
func (h *Handlers) TrackClick(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	albumID := c.Param("album_id")

	ctx, span := h.kernel.Events().TraceFeedback(c.Request.Context(), "click", userID, albumID)
	defer span.End()

	click, err := h.kernel.Tracker().RecordClick(ctx, userID, albumID)
	if err != nil {
		h.kernel.Events().RecordError(span, err)
		logger.Log.Error("Failed to record click", logger.WithUserID(userID), logger.WithAlbumID(albumID), zap.Error(err))
		util.RespondInternalError(c, "failed to track click")
		return
	}
	middleware.RecordFeedback("click", "")

	c.JSON(http.StatusOK, gin.H{
		"status":   "click_tracked",
		"album_id": albumID,
		"pool":     click.Pool,
		"position": click.Position,
	})
}

// UpdateSettings stores the user's recommendation knobs
// PUT /api/v1/recommendations/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Adventurousness  *float64                   `json:"adventurousness" binding:"omitempty,min=0,max=1"`
		AudioPreferences recommend.AudioPreferences `json:"audio_preferences"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "", err.Error())
		return
	}
	for feature, pref := range req.AudioPreferences {
		if !knownFeature(feature) {
			util.RespondValidationError(c, "audio_preferences", "unknown audio feature "+feature)
			return
		}
		if pref.Min > pref.Max || pref.Weight < 0 {
			util.RespondValidationError(c, "audio_preferences", "invalid preference for "+feature)
			return
		}
	}

	err := h.kernel.Users().UpdateRecommendationSettings(c.Request.Context(), userID, req.Adventurousness, req.AudioPreferences)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		util.RespondNotFound(c, "user")
		return
	case errors.Is(err, repository.ErrInvalidInput):
		util.RespondValidationError(c, "adventurousness", err.Error())
		return
	case err != nil:
		logger.Log.Error("Failed to update settings", logger.WithUserID(userID), zap.Error(err))
		util.RespondInternalError(c, "failed to update settings")
		return
	}

	h.kernel.ProfileCache().InvalidateProfile(c.Request.Context(), userID)

	c.JSON(http.StatusOK, gin.H{
		"status":            "settings_updated",
		"adventurousness":   req.Adventurousness,
		"audio_preferences": req.AudioPreferences,
	})
}

func knownFeature(name string) bool {
	switch name {
	case recommend.FeatureEnergy, recommend.FeatureValence, recommend.FeatureDanceability,
		recommend.FeatureAcousticness, recommend.FeatureTempo:
		return true
	}
	return false
}
