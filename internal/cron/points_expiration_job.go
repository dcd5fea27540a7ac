package cron

import (
	"context"
	"fmt"

	"github.com/piecehub/piecehub-backend/pkg/logger"
)

type pointsExpirer interface {
	ExpirePoints(ctx context.Context) (int, error)
}

// PointsExpirationJobParams configures the nightly loyalty expiry pass.
type PointsExpirationJobParams struct {
	Logger  *logger.Logger
	Loyalty pointsExpirer
}

// NewPointsExpirationJob builds the job that retires overdue loyalty credits.
func NewPointsExpirationJob(params PointsExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &pointsExpirationJob{
		logg:    params.Logger,
		loyalty: params.Loyalty,
	}, nil
}

type pointsExpirationJob struct {
	logg    *logger.Logger
	loyalty pointsExpirer
}

func (j *pointsExpirationJob) Name() string { return "points-expiration" }

func (j *pointsExpirationJob) Run(ctx context.Context) error {
	expired, err := j.loyalty.ExpirePoints(ctx)
	if err != nil {
		return fmt.Errorf("expire loyalty points: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "points_expired", expired)
	j.logg.Info(logCtx, "points expiration complete")
	return nil
}
