package util

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondEngineError(c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondEngineError(t *testing.T) {
	t.Run("ineligible user is a 200", func(t *testing.T) {
		code, body := respond(t, fmt.Errorf("profile: %w", recommend.ErrPreconditionUnmet))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["eligible"])
		assert.Equal(t, "NOT_ELIGIBLE", body["code"])
	})

	t.Run("empty catalog is a 200 with no albums", func(t *testing.T) {
		code, body := respond(t, recommend.ErrNoCandidates)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "NO_CANDIDATES", body["code"])
		assert.Empty(t, body["albums"])
	})

	t.Run("bad input is a 400", func(t *testing.T) {
		code, body := respond(t, fmt.Errorf("%w: unknown mode", recommend.ErrInvalidInput))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
	})

	t.Run("deadline is a 504", func(t *testing.T) {
		code, body := respond(t, fmt.Errorf("pools: %w", context.DeadlineExceeded))
		assert.Equal(t, http.StatusGatewayTimeout, code)
		assert.Equal(t, "TIMEOUT", body["code"])
	})

	t.Run("anything else is a 500", func(t *testing.T) {
		code, body := respond(t, fmt.Errorf("connection refused"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "INTERNAL_ERROR", body["code"])
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set(UserIDKey, "user-1")
	id, ok := GetUserIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 20, ParseInt("20", 5))
	assert.Equal(t, 5, ParseInt("twenty", 5))

	assert.True(t, ParseBool("yes", false))
	assert.False(t, ParseBool("0", true))
	assert.True(t, ParseBool("maybe", true))

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.AddDate(0, 0, -7), ParseSince("7d", now, time.Hour))
	assert.Equal(t, now.Add(-2*time.Hour), ParseSince("2h", now, time.Hour))
	assert.Equal(t, now.Add(-time.Hour), ParseSince("soon", now, time.Hour))
}

func TestRespondNotEligible(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondNotEligible(c, 4, 10)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NOT_ELIGIBLE", body["code"])
	assert.EqualValues(t, 4, body["review_count"])
	assert.EqualValues(t, 10, body["required_reviews"])
	assert.Contains(t, body["message"], "review 6 more albums")
}
