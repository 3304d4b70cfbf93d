package cascade

import (
	"carecore/internal/blob"
	"carecore/internal/docstore"
	"carecore/internal/logging"
	"carecore/internal/state"
	"carecore/pkg/domain"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel asset deletions.
const DefaultConcurrency = 8

// Phase names the stage a cascade failed in.
type Phase string

const (
	PhasePlan      Phase = "plan"
	PhaseDocuments Phase = "documents"
)

// Error reports where a cascade stopped. Completed lists the documents that
// were deleted remotely before the failure; local state is untouched.
type Error struct {
	Phase     Phase
	Entity    domain.EntityType
	ID        string
	Completed map[domain.EntityType][]string
	Err       error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("cascade %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("cascade %s: delete %s %s: %v", e.Phase, e.Entity, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AssetFailure is an asset that could not be deleted.
type AssetFailure struct {
	Path string
	Err  error
}

// Report summarises a completed cascade.
type Report struct {
	Deleted       map[domain.EntityType][]string
	AssetsDeleted int
	AssetFailures []AssetFailure
}

// Count returns how many documents of entity were deleted.
func (r Report) Count(entity domain.EntityType) int { return len(r.Deleted[entity]) }

// AssetErr joins every asset failure, or returns nil.
func (r Report) AssetErr() error {
	errs := make([]error, 0, len(r.AssetFailures))
	for _, f := range r.AssetFailures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
	}
	return errors.Join(errs...)
}

// Observer receives per-item outcomes, typically to feed metrics.
type Observer interface {
	DocumentDeleted(entity domain.EntityType)
	AssetDeleted(path string, err error)
}

type nopObserver struct{}

func (nopObserver) DocumentDeleted(domain.EntityType) {}
func (nopObserver) AssetDeleted(string, error)        {}

// Runner executes plans: remote documents first, then assets, then the local store.
type Runner struct {
	Docs        docstore.Store
	Blobs       blob.Store
	Local       *state.Store
	Concurrency int
	Logger      *zap.Logger
	Observer    Observer
}

func (r *Runner) logger() *zap.Logger { return logging.OrNop(r.Logger) }

func (r *Runner) observer() Observer {
	if r.Observer == nil {
		return nopObserver{}
	}
	return r.Observer
}

// Run executes plan.
//
// Documents are deleted one at a time in plan order and the first failure
// aborts the run with an *Error. Assets are then deleted concurrently; their
// failures are collected in the report and never abort. Finally every planned
// row is removed from the local store in one dispatch.
func (r *Runner) Run(ctx context.Context, plan Plan) (Report, error) {
	log := r.logger().With(zap.String("root", string(plan.Root)))
	report := Report{Deleted: make(map[domain.EntityType][]string)}
	if plan.Empty() {
		return report, nil
	}

	for _, step := range plan.Steps {
		coll, ok := docstore.CollectionFor(step.Entity)
		if !ok {
			return report, &Error{Phase: PhasePlan, Entity: step.Entity, Completed: report.Deleted,
				Err: fmt.Errorf("no document collection for %s", step.Entity)}
		}
		for _, id := range step.IDs {
			err := ctx.Err()
			if err == nil {
				err = r.Docs.Delete(ctx, coll, id)
			}
			if err != nil {
				log.Warn("document deletion failed",
					zap.String("entity", string(step.Entity)), zap.String("id", id), zap.Error(err))
				return report, &Error{Phase: PhaseDocuments, Entity: step.Entity, ID: id, Completed: report.Deleted, Err: err}
			}
			report.Deleted[step.Entity] = append(report.Deleted[step.Entity], id)
			r.observer().DocumentDeleted(step.Entity)
		}
	}

	report.AssetsDeleted, report.AssetFailures = r.deleteAssets(ctx, plan.Assets)
	for _, f := range report.AssetFailures {
		log.Warn("asset deletion failed", zap.String("path", f.Path), zap.Error(f.Err))
	}

	actions := make([]state.Action, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		actions = append(actions, state.RemoveEntities{Entity: step.Entity, IDs: step.IDs})
	}
	if r.Local != nil {
		r.Local.Dispatch(actions...)
	}

	log.Info("cascade complete",
		zap.Int("documents", plan.Total()),
		zap.Int("assets_deleted", report.AssetsDeleted),
		zap.Int("asset_failures", len(report.AssetFailures)))
	return report, nil
}

func (r *Runner) deleteAssets(ctx context.Context, paths []string) (int, []AssetFailure) {
	if len(paths) == 0 || r.Blobs == nil {
		return 0, nil
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var (
		mu       sync.Mutex
		deleted  int
		failures []AssetFailure
		g        errgroup.Group
	)
	g.SetLimit(limit)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			_, err := r.Blobs.Delete(ctx, p)
			r.observer().AssetDeleted(p, err)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, AssetFailure{Path: p, Err: err})
				return nil
			}
			deleted++
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	return deleted, failures
}
