package revaluer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yourorg/appraisal-api/internal/appraisal"
	"github.com/yourorg/appraisal-api/internal/events"
	"github.com/yourorg/appraisal-api/internal/refresh"
	"github.com/yourorg/appraisal-api/internal/store"
)

// Recomputer is satisfied by *appraisal.Service.
type Recomputer interface {
	Recompute(ctx context.Context, appraisalID string) (appraisal.Valuation, error)
	Invalidate(ctx context.Context, appraisalID string)
}

// Enqueuer is satisfied by *refresh.Refresher.
type Enqueuer interface {
	Enqueue(j refresh.Job) bool
}

// Revaluer consumes appraisal-changed events and schedules recomputation.
type Revaluer struct {
	Pub     events.Publisher
	Queue   Enqueuer
	Service Recomputer
	Logger  *slog.Logger
}

func (r *Revaluer) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run blocks until ctx is cancelled.
func (r *Revaluer) Run(ctx context.Context) {
	sub := r.Pub.SubscribeAppraisalChanged()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			r.Service.Invalidate(ctx, evt.AppraisalID)
			if !r.Queue.Enqueue(refresh.Job{Key: evt.AppraisalID, Reason: evt.Reason}) {
				r.log().Debug("revaluation already pending or queue full", "appraisal_id", evt.AppraisalID, "reason", evt.Reason)
			}
		}
	}
}

// Revalue is the refresh worker body.
func (r *Revaluer) Revalue(ctx context.Context, j refresh.Job) {
	if _, err := r.Service.Recompute(ctx, j.Key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log().Debug("appraisal gone before revaluation", "appraisal_id", j.Key)
			return
		}
		r.log().Warn("revaluation failed", "appraisal_id", j.Key, "reason", j.Reason, "error", err)
	}
}
