package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/auth"
	apierrors "github.com/sh6drack/actually-waxfeed-sub002/internal/errors"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
	"go.uber.org/zap"
)

// RequireAuth validates the bearer token and stores the caller's user ID
// under util.UserIDKey. Requests without a valid token are rejected with 401.
func RequireAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			util.RespondWithAPIError(c, apierrors.Unauthorized("no token provided"))
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		userID, err := tokens.ValidateToken(tokenString)
		if err != nil {
			logger.Log.Debug("rejected token",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			RecordError("auth", c.FullPath())
			util.RespondWithAPIError(c, apierrors.Unauthorized("invalid token"))
			c.Abort()
			return
		}

		c.Set(util.UserIDKey, userID)
		c.Next()
	}
}
