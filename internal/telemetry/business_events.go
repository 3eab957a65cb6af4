package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents provides helper methods for tracing domain-specific operations,
// one level above the HTTP and DB spans
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// RecommendationAttrs describe one recommendation request
type RecommendationAttrs struct {
	Flow       string // "random", "swipe", "onboarding", "compatibility"
	Mode       string
	Limit      int64
	ItemCount  int64
	Degraded   int64 // number of pools that failed
	Onboarding bool
}

// TraceRecommendation creates a span around a recommendation request
func (be *BusinessEvents) TraceRecommendation(ctx context.Context, userID string, attrs RecommendationAttrs) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "recommendation."+attrs.Flow,
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("recommendation.flow", attrs.Flow),
		),
	)
	if attrs.Mode != "" {
		span.SetAttributes(attribute.String("recommendation.mode", attrs.Mode))
	}
	if attrs.Limit > 0 {
		span.SetAttributes(attribute.Int64("recommendation.limit", attrs.Limit))
	}
	if attrs.Onboarding {
		span.SetAttributes(attribute.Bool("recommendation.onboarding", true))
	}
	return ctx, span
}

// RecordRecommendationResult annotates the span with what was served
func (be *BusinessEvents) RecordRecommendationResult(span trace.Span, itemCount, degraded int) {
	span.SetAttributes(
		attribute.Int("recommendation.item_count", itemCount),
		attribute.Int("recommendation.degraded_pools", degraded),
	)
}

// TraceFeedback creates a span for a skip or click the user sent back
func (be *BusinessEvents) TraceFeedback(ctx context.Context, kind, userID, albumID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "recommendation.feedback."+kind,
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("album.id", albumID),
		),
	)
}

// RecordError marks the span failed
func (be *BusinessEvents) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
