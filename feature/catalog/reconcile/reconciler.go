package reconcile

import (
	"context"
	"fmt"
	"time"

	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/repository"

	"go.uber.org/zap"
)

// ValidationError marks malformed input to the Reconciler: a caller bug,
// fatal to the call but never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Reconciler keeps the persisted catalog consistent with the latest
// fetched candidates, one category at a time. Every update commits as a
// single unit: stale rows evicted first from persisted state alone, then
// candidates merged by natural key, then an update-log row appended.
type Reconciler struct {
	repo      repository.Repository
	logger    *zap.Logger
	retention int
	now       func() time.Time
}

// Options tunes a Reconciler. Zero values fall back to defaults.
type Options struct {
	// LogRetention caps update-log rows kept per category (default 100).
	LogRetention int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a Reconciler over the given repository.
func New(repo repository.Repository, logger *zap.Logger, opts Options) *Reconciler {
	if opts.LogRetention <= 0 {
		opts.LogRetention = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{
		repo:      repo,
		logger:    logger,
		retention: opts.LogRetention,
		now:       opts.Now,
	}
}

// UpdateCategory reconciles candidates into the catalog and returns the
// number of rows inserted or changed. Calling it twice with the same
// candidate set yields zero on the second call. An empty candidate list
// is a no-op that still logs the refresh.
func (r *Reconciler) UpdateCategory(
	ctx context.Context,
	cat models.Category,
	candidates []models.Record,
	staleAfter time.Duration,
) (int, error) {
	if err := validate(cat, candidates); err != nil {
		return 0, err
	}

	now := r.now()
	changed := 0
	err := r.repo.Transact(ctx, func(tx repository.Repository) error {
		// Eviction runs before the merge and sees only persisted state:
		// a row survives by being reaffirmed, not by being re-submitted
		// stale.
		if staleAfter > 0 {
			evicted, err := tx.DeleteStale(ctx, cat, now.Add(-staleAfter))
			if err != nil {
				return fmt.Errorf("evict stale %s rows: %w", cat, err)
			}
			if evicted > 0 {
				r.logger.Info("evicted stale rows",
					zap.String("category", string(cat)),
					zap.Int64("count", evicted))
			}
		}

		for _, candidate := range candidates {
			existing, found, err := tx.FindByKey(ctx, candidate)
			if err != nil {
				return fmt.Errorf("lookup %s %q: %w", cat, candidate.Key(), err)
			}
			if !found {
				candidate.Touch(now)
				if err := tx.Insert(ctx, candidate); err != nil {
					return fmt.Errorf("insert %s %q: %w", cat, candidate.Key(), err)
				}
				changed++
				r.logger.Debug("inserted row",
					zap.String("category", string(cat)),
					zap.String("key", candidate.Key()))
				continue
			}
			// Same natural key: merge non-key attributes into the
			// existing row, keeping its surrogate id. The loaddate is
			// reaffirmed either way.
			merged := candidate.MergeInto(existing)
			existing.Touch(now)
			if err := tx.Update(ctx, existing); err != nil {
				return fmt.Errorf("update %s %q: %w", cat, existing.Key(), err)
			}
			if merged {
				changed++
				r.logger.Debug("merged row",
					zap.String("category", string(cat)),
					zap.String("key", existing.Key()))
			}
		}

		if err := tx.AppendUpdateLog(ctx, cat, now, r.retention); err != nil {
			return fmt.Errorf("append update log for %s: %w", cat, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("category reconciled",
		zap.String("category", string(cat)),
		zap.Int("candidates", len(candidates)),
		zap.Int("changed", changed))
	return changed, nil
}

func validate(cat models.Category, candidates []models.Record) error {
	want := cat.Kind()
	for i, candidate := range candidates {
		if candidate == nil {
			return validationErrorf("candidate %d for category %s is nil", i, cat)
		}
		if candidate.Kind() != want {
			return validationErrorf(
				"candidate %d for category %s has kind %s, want %s",
				i, cat, candidate.Kind(), want)
		}
	}
	return nil
}
