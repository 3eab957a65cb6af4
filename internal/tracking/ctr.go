package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CTRMetric represents click-through rate for one recommendation pool
type CTRMetric struct {
	Pool        string    `json:"pool"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	CTR         float64   `json:"ctr"` // clicks/impressions * 100
	Since       time.Time `json:"since"`
}

// ctrPools lists the pools reported on, in display order
func ctrPools() []string {
	pools := make([]string, 0, 5)
	for _, p := range recommend.AllPools() {
		pools = append(pools, string(p))
	}
	return append(pools, UnattributedPool)
}

// CalculateCTR calculates click-through rates for each pool since the given time
func CalculateCTR(ctx context.Context, db *gorm.DB, since time.Time) ([]CTRMetric, error) {
	metrics := make([]CTRMetric, 0, 5)

	for _, pool := range ctrPools() {
		var impressionCount int64
		var clickCount int64

		err := db.WithContext(ctx).Model(&models.RecommendationImpression{}).
			Where("pool = ? AND created_at >= ?", pool, since).
			Count(&impressionCount).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count impressions for %s: %w", pool, err)
		}

		err = db.WithContext(ctx).Model(&models.RecommendationClick{}).
			Where("pool = ? AND created_at >= ?", pool, since).
			Count(&clickCount).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count clicks for %s: %w", pool, err)
		}

		ctr := 0.0
		if impressionCount > 0 {
			ctr = (float64(clickCount) / float64(impressionCount)) * 100
		}

		metrics = append(metrics, CTRMetric{
			Pool:        pool,
			Impressions: impressionCount,
			Clicks:      clickCount,
			CTR:         ctr,
			Since:       since,
		})
	}

	return metrics, nil
}

// GetCTRByPool returns the CTR metric for a single pool
func GetCTRByPool(ctx context.Context, db *gorm.DB, pool string, since time.Time) (*CTRMetric, error) {
	metrics, err := CalculateCTR(ctx, db, since)
	if err != nil {
		return nil, err
	}

	for _, m := range metrics {
		if m.Pool == pool {
			return &m, nil
		}
	}

	return &CTRMetric{Pool: pool, Since: since}, nil
}

// LogCTRMetrics calculates and logs CTR metrics for the past 24 hours
func LogCTRMetrics(ctx context.Context, db *gorm.DB) error {
	since := time.Now().Add(-24 * time.Hour)
	metrics, err := CalculateCTR(ctx, db, since)
	if err != nil {
		return err
	}

	for _, m := range metrics {
		if m.Impressions == 0 {
			logger.Log.Info("CTR (24h): no impressions", logger.WithPool(m.Pool))
			continue
		}
		logger.Log.Info("CTR (24h)",
			logger.WithPool(m.Pool),
			zap.Float64("ctr_pct", m.CTR),
			zap.Int64("clicks", m.Clicks),
			zap.Int64("impressions", m.Impressions),
		)
	}
	return nil
}
