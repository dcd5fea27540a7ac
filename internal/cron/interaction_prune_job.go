package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/piecehub/piecehub-backend/pkg/logger"
)

type interactionPruner interface {
	PruneOldViews(ctx context.Context, now time.Time) (int64, error)
}

// InteractionPruneJobParams configures the view-history retention job.
type InteractionPruneJobParams struct {
	Logger       *logger.Logger
	Interactions interactionPruner
}

// NewInteractionPruneJob builds the job that trims stale product views.
func NewInteractionPruneJob(params InteractionPruneJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Interactions == nil {
		return nil, fmt.Errorf("interactions service required")
	}
	return &interactionPruneJob{
		logg:         params.Logger,
		interactions: params.Interactions,
		now:          time.Now,
	}, nil
}

type interactionPruneJob struct {
	logg         *logger.Logger
	interactions interactionPruner
	now          func() time.Time
}

func (j *interactionPruneJob) Name() string { return "interaction-prune" }

func (j *interactionPruneJob) Run(ctx context.Context) error {
	deleted, err := j.interactions.PruneOldViews(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("prune old views: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_deleted", deleted)
	j.logg.Info(logCtx, "interaction prune complete")
	return nil
}
