package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/platform/logger"
)

// SingleGenerator renders one factory month.
type SingleGenerator interface {
	Generate(ctx context.Context, factoryID int64, period domain.Period) (*Artifact, error)
}

// FactoryLister lists the factories a batch covers by default.
type FactoryLister interface {
	ListFactories(ctx context.Context, includeDeleted bool) ([]domain.Factory, error)
}

// Failure is a factory whose report could not be produced.
type Failure struct {
	FactoryID int64
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("factory %d: %v", f.FactoryID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// BatchResult holds the artifacts of successful factories and the failures.
type BatchResult struct {
	Artifacts []*Artifact
	Failures  []Failure
}

// Err joins all failures, or returns nil.
func (r *BatchResult) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// FileNames returns a destination name per artifact, index-aligned with
// Artifacts. Factories sharing a display name across companies get their
// id appended so copies into one directory never overwrite each other.
func (r *BatchResult) FileNames() []string {
	counts := make(map[string]int, len(r.Artifacts))
	for _, a := range r.Artifacts {
		counts[a.Name]++
	}
	names := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		if counts[a.Name] < 2 {
			names[i] = a.Name
			continue
		}
		ext := filepath.Ext(a.Name)
		names[i] = fmt.Sprintf("%s (factory %d)%s", strings.TrimSuffix(a.Name, ext), a.FactoryID, ext)
	}
	return names
}

// Dispose removes every artifact.
func (r *BatchResult) Dispose() error {
	var err error
	for _, a := range r.Artifacts {
		err = errors.Join(err, a.Dispose())
	}
	return err
}

// Batch renders several factories in parallel. A failing factory never
// aborts the others.
type Batch struct {
	generator   SingleGenerator
	factories   FactoryLister
	concurrency int
	logger      *logger.Logger
}

// NewBatch constructs a Batch; concurrency below one means one.
func NewBatch(generator SingleGenerator, factories FactoryLister, concurrency int, l *logger.Logger) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Batch{generator: generator, factories: factories, concurrency: concurrency, logger: l}
}

// Generate renders the period for factoryIDs, or for every active factory
// when the list is empty. If ctx is cancelled every produced artifact is
// disposed and ctx's error returned.
func (b *Batch) Generate(ctx context.Context, period domain.Period, factoryIDs []int64) (*BatchResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	ids, err := b.targets(ctx, factoryIDs)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result = &BatchResult{}
		g      errgroup.Group
	)
	g.SetLimit(b.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, Failure{FactoryID: id, Err: err})
				mu.Unlock()
				return nil
			}
			artifact, err := b.generator.Generate(ctx, id, period)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Error("report generation failed", "factory_id", id, "period", period.String(), "error", err)
				result.Failures = append(result.Failures, Failure{FactoryID: id, Err: err})
				return nil
			}
			result.Artifacts = append(result.Artifacts, artifact)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if disposeErr := result.Dispose(); disposeErr != nil {
			b.logger.Warn("failed to dispose artifacts of cancelled batch", "error", disposeErr)
		}
		return nil, err
	}

	order := make(map[int64]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}
	slices.SortFunc(result.Artifacts, func(x, y *Artifact) int { return order[x.FactoryID] - order[y.FactoryID] })
	slices.SortFunc(result.Failures, func(x, y Failure) int { return order[x.FactoryID] - order[y.FactoryID] })

	b.logger.Info("report batch finished", "period", period.String(),
		"succeeded", len(result.Artifacts), "failed", len(result.Failures))
	return result, nil
}

func (b *Batch) targets(ctx context.Context, factoryIDs []int64) ([]int64, error) {
	if len(factoryIDs) > 0 {
		ids := slices.Clone(factoryIDs)
		slices.Sort(ids)
		return slices.Compact(ids), nil
	}
	factories, err := b.factories.ListFactories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list factories: %w", err)
	}
	ids := make([]int64, 0, len(factories))
	for _, f := range factories {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
