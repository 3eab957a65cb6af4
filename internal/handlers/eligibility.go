package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
)

// requireEligible enforces the review threshold for the personalized flows.
// It writes the response and returns false when the user is below it.
func (h *Handlers) requireEligible(c *gin.Context, userID string) bool {
	required := h.kernel.Engine().Config().EligibilityMinReviews
	count, err := h.kernel.History().GetReviewCount(c.Request.Context(), userID)
	if err != nil {
		util.RespondInternalError(c, "failed to load review history")
		return false
	}
	if count < int64(required) {
		util.RespondNotEligible(c, count, required)
		return false
	}
	return true
}
