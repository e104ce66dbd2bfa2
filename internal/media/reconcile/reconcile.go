// Package reconcile keeps the blob store in agreement with the relational
// records that reference it. When a record is deleted or its image set is
// replaced, the reconciler deletes every blob (and its thumbnail) that the
// record no longer references. Cleanup is best-effort: per-key failures are
// aggregated into a report and logged for out-of-band orphan auditing, never
// raised to the caller — a blob-store hiccup must not fail the user's edit
// or delete.
package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/Misaka450/baoandkai-sub000/internal/media/blob"
	"github.com/Misaka450/baoandkai-sub000/internal/media/key"
)

var (
	reconcileRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_reconcile_runs_total",
			Help: "Total reconciliation passes",
		},
	)

	reconcileKeysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_reconcile_keys_total",
			Help: "Reconciled keys by result",
		},
		[]string{"result"},
	)
)

// DefaultConcurrency bounds parallel deletes per reconciliation pass.
const DefaultConcurrency = 4

// Failure records one key whose delete did not succeed. These are orphan
// candidates for the audit tooling.
type Failure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Report summarizes one reconciliation pass. Thumbnail keys are reported
// individually alongside their primaries.
type Report struct {
	// Succeeded lists keys that were deleted or already absent.
	Succeeded []string `json:"succeeded"`
	// Failed lists keys whose delete failed, with the reason.
	Failed []Failure `json:"failed,omitempty"`
	// Skipped lists references that did not parse as ours (foreign or
	// placeholder URLs); they are never deleted and count as neither
	// success nor failure.
	Skipped []string `json:"skipped,omitempty"`
}

// Clean reports whether the pass completed with no failed deletes.
func (r Report) Clean() bool {
	return len(r.Failed) == 0
}

// Reconciler issues best-effort parallel blob deletes for dereferenced
// images. Stateless; the concurrency pool is per-call.
type Reconciler struct {
	client      *blob.Client
	keys        *key.Deriver
	concurrency int
	logger      *slog.Logger
}

// New creates a reconciler. concurrency <= 0 selects DefaultConcurrency.
func New(client *blob.Client, keys *key.Deriver, concurrency int, logger *slog.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Reconciler{
		client:      client,
		keys:        keys,
		concurrency: concurrency,
		logger:      logger,
	}
}

// OnReplace reconciles an image-set replacement on one record: every
// reference present in old but not in updated is a removal candidate. For
// each candidate that parses as one of our references, the primary blob and
// its thumbnail are deleted in parallel. OnReplace never returns an error;
// the caller commits the relational update regardless of cleanup outcome.
func (r *Reconciler) OnReplace(ctx context.Context, old, updated []string) Report {
	reconcileRunsTotal.Inc()

	removed := difference(old, updated)
	if len(removed) == 0 {
		return Report{}
	}

	var (
		mu     sync.Mutex
		report Report
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for _, ref := range removed {
		k, ok := r.keys.ExtractKey(ref)
		if !ok {
			// Foreign URL (external image, placeholder avatar): never ours
			// to delete.
			reconcileKeysTotal.WithLabelValues("skipped").Inc()
			report.Skipped = append(report.Skipped, ref)
			continue
		}

		for _, target := range []string{k, key.Thumbnail(k)} {
			target := target
			g.Go(func() error {
				outcome := r.client.Delete(ctx, target)

				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case blob.OutcomeDeleted, blob.OutcomeAlreadyAbsent:
					reconcileKeysTotal.WithLabelValues("succeeded").Inc()
					report.Succeeded = append(report.Succeeded, target)
				default:
					reconcileKeysTotal.WithLabelValues("failed").Inc()
					report.Failed = append(report.Failed, Failure{Key: target, Reason: outcome.String()})
				}
				return nil
			})
		}
	}

	// Deletes never propagate errors; Wait is only a join point.
	_ = g.Wait()

	if !report.Clean() {
		r.logger.WarnContext(ctx, "reconciliation left orphan candidates",
			slog.Int("failed", len(report.Failed)),
			slog.Int("succeeded", len(report.Succeeded)),
			slog.Any("keys", failureKeys(report.Failed)),
		)
	} else {
		r.logger.DebugContext(ctx, "reconciliation complete",
			slog.Int("succeeded", len(report.Succeeded)),
			slog.Int("skipped", len(report.Skipped)),
		)
	}

	return report
}

// OnDelete reconciles a whole-record deletion: every reference in the
// record's final pre-delete image set is a removal candidate.
func (r *Reconciler) OnDelete(ctx context.Context, imageSet []string) Report {
	return r.OnReplace(ctx, imageSet, nil)
}

// difference returns the elements of old absent from updated, preserving
// order and dropping duplicates.
func difference(old, updated []string) []string {
	keep := make(map[string]bool, len(updated))
	for _, ref := range updated {
		keep[ref] = true
	}

	var out []string
	seen := make(map[string]bool, len(old))
	for _, ref := range old {
		if keep[ref] || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

func failureKeys(failures []Failure) []string {
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.Key
	}
	return out
}
