// Package tracking records which recommended albums were shown and opened,
// and reports click-through rates per candidate pool.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// UnattributedPool is recorded for clicks with no matching impression
	UnattributedPool = "unattributed"

	// AttributionWindow bounds how old an impression may be to claim a click
	AttributionWindow = 7 * 24 * time.Hour

	asyncWriteTimeout = 5 * time.Second
)

// Tracker writes impressions and clicks
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTracker creates a tracker over db
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordImpressions stores one impression per served album, keeping its
// position in the response
func (t *Tracker) RecordImpressions(ctx context.Context, userID, flow, mode string, items []recommend.ScoredCandidate) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]models.RecommendationImpression, 0, len(items))
	for i, item := range items {
		score := item.Score
		row := models.RecommendationImpression{
			UserID:   userID,
			AlbumID:  item.ID,
			Flow:     flow,
			Pool:     string(item.Pool),
			Mode:     mode,
			Position: i,
			Score:    &score,
		}
		if item.Reason != "" {
			reason := item.Reason
			row.Reason = &reason
		}
		rows = append(rows, row)
	}

	if err := t.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return fmt.Errorf("failed to record impressions: %w", err)
	}
	return nil
}

// RecordImpressionsAsync records impressions off the request path. Failures
// are logged only.
func (t *Tracker) RecordImpressionsAsync(userID, flow, mode string, items []recommend.ScoredCandidate) {
	if t == nil || len(items) == 0 {
		return
	}
	snapshot := append([]recommend.ScoredCandidate(nil), items...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
		defer cancel()
		if err := t.RecordImpressions(ctx, userID, flow, mode, snapshot); err != nil {
			logger.Log.Warn("Impression tracking failed",
				logger.WithUserID(userID),
				zap.String("flow", flow),
				zap.Error(err),
			)
		}
	}()
}

// RecordClick attributes a click to the newest unclicked impression of the
// album for the user inside the attribution window
func (t *Tracker) RecordClick(ctx context.Context, userID, albumID string) (*models.RecommendationClick, error) {
	click := &models.RecommendationClick{
		UserID:  userID,
		AlbumID: albumID,
		Pool:    UnattributedPool,
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var impression models.RecommendationImpression
		err := tx.Where("user_id = ? AND album_id = ? AND clicked = ? AND created_at >= ?",
			userID, albumID, false, t.now().Add(-AttributionWindow)).
			Order("created_at DESC").
			First(&impression).Error

		switch {
		case err == nil:
			clickedAt := t.now()
			if err := tx.Model(&impression).Updates(map[string]interface{}{
				"clicked":    true,
				"clicked_at": clickedAt,
			}).Error; err != nil {
				return err
			}
			position := impression.Position
			click.RecommendationImpressionID = &impression.ID
			click.Pool = impression.Pool
			click.Position = &position
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		return tx.Create(click).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}
	return click, nil
}
