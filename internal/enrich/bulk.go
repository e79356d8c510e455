// Package enrich runs bulk enrichment: applying extracted field patches
// across many records sequentially, paced to respect external rate limits,
// with a durable checkpoint written after every item so an interrupted run
// resumes where it stopped instead of reprocessing or dropping work.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealflow/internal/merge"
	"github.com/sells-group/dealflow/internal/model"
)

// Item is one record's pending patch in a bulk run.
type Item struct {
	RecordID    string            `json:"record_id"`
	Patch       map[string]any    `json:"patch"`
	Source      model.FieldSource `json:"source"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// Applier applies one patch to one record. Session.EnrichBuyer and
// Session.EnrichDeal both satisfy it, so a run inherits the per-record
// write serialization.
type Applier func(ctx context.Context, recordID string, patch map[string]any, source model.FieldSource, extractedAt time.Time) (*merge.Result, error)

// CheckpointStore is the durable checkpoint slice of the store.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, operationID, collectionID string) (*model.EnrichmentCheckpoint, error)
	SaveCheckpoint(ctx context.Context, cp *model.EnrichmentCheckpoint) error
}

// Runner executes bulk enrichment operations.
type Runner struct {
	store   CheckpointStore
	apply   Applier
	limiter *rate.Limiter
}

// NewRunner creates a Runner with the given inter-item delay. A zero delay
// disables pacing.
func NewRunner(store CheckpointStore, apply Applier, delay time.Duration) *Runner {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Runner{store: store, apply: apply, limiter: limiter}
}

// Run processes items in order, skipping ids the checkpoint already covers.
// Per-item apply failures are tallied, not fatal; checkpoint write failures
// are fatal since resumability would be lost. Cancellation takes effect
// between items and leaves the checkpoint at the last completed one.
func (r *Runner) Run(ctx context.Context, operationID, collectionID string, items []Item) (*model.BulkTally, error) {
	cp, err := r.store.GetCheckpoint(ctx, operationID, collectionID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp = &model.EnrichmentCheckpoint{OperationID: operationID, CollectionID: collectionID}
	}
	tally := &model.BulkTally{Succeeded: cp.Succeeded, Failed: cp.Failed, Skipped: cp.Skipped}

	for _, item := range items {
		if cp.Processed(item.RecordID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return tally, eris.Wrapf(err, "enrich: run %s cancelled", operationID)
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return tally, eris.Wrapf(err, "enrich: run %s cancelled", operationID)
		}

		res, applyErr := r.apply(ctx, item.RecordID, item.Patch, item.Source, item.ExtractedAt)
		switch {
		case applyErr != nil:
			tally.Failed++
			zap.L().Warn("enrich: item failed",
				zap.String("operation_id", operationID),
				zap.String("record_id", item.RecordID),
				zap.Error(applyErr))
		case len(res.Applied) == 0:
			tally.Skipped++
		default:
			tally.Succeeded++
			zap.L().Debug("enrich: item applied",
				zap.String("record_id", item.RecordID),
				zap.Strings("fields", res.Applied))
		}

		cp.ProcessedIDs = append(cp.ProcessedIDs, item.RecordID)
		cp.Succeeded, cp.Failed, cp.Skipped = tally.Succeeded, tally.Failed, tally.Skipped
		if err := r.store.SaveCheckpoint(ctx, cp); err != nil {
			return tally, eris.Wrapf(err, "enrich: save checkpoint for %s", operationID)
		}
	}

	zap.L().Info("enrich: run complete",
		zap.String("operation_id", operationID),
		zap.String("collection_id", collectionID),
		zap.Int("succeeded", tally.Succeeded),
		zap.Int("failed", tally.Failed),
		zap.Int("skipped", tally.Skipped))
	return tally, nil
}
