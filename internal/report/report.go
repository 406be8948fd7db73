// Package report turns aggregated months into spreadsheet files on disk and
// manages their lifetime.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"example.com/timesheet/internal/aggregation"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/layout"
	"example.com/timesheet/internal/observability"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/render"
)

// Aggregator produces the data of one factory month.
type Aggregator interface {
	Aggregate(ctx context.Context, factoryID int64, period domain.Period) (*aggregation.MonthReport, error)
}

// Artifact is a generated report file. Callers own it and must Dispose it
// once the file has been delivered or copied.
type Artifact struct {
	// Name is the display file name.
	Name      string
	Path      string
	FactoryID int64
	Period    domain.Period

	dir        string
	once       sync.Once
	disposeErr error
	logger     *logger.Logger
}

// Open opens the artifact for reading.
func (a *Artifact) Open() (*os.File, error) {
	return os.Open(a.Path)
}

// Dispose removes the artifact from disk. It is safe to call repeatedly.
func (a *Artifact) Dispose() error {
	a.once.Do(func() {
		a.disposeErr = os.RemoveAll(a.dir)
		if a.disposeErr != nil {
			a.logger.Warn("failed to remove report artifact", "path", a.Path, "error", a.disposeErr)
			return
		}
		a.logger.Debug("report artifact removed", "path", a.Path)
	})
	return a.disposeErr
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger overrides the logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithClock overrides the clock used for the file name date.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// Generator renders single factory reports into a working directory.
type Generator struct {
	aggregator Aggregator
	builder    *layout.Builder
	serializer render.Serializer
	dir        string
	now        func() time.Time
	logger     *logger.Logger
}

// NewGenerator constructs a Generator writing under dir (os.TempDir when empty).
func NewGenerator(aggregator Aggregator, builder *layout.Builder, serializer render.Serializer, dir string, opts ...Option) *Generator {
	if dir == "" {
		dir = os.TempDir()
	}
	g := &Generator{
		aggregator: aggregator,
		builder:    builder,
		serializer: serializer,
		dir:        dir,
		now:        time.Now,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate aggregates, lays out and serializes one factory month.
func (g *Generator) Generate(ctx context.Context, factoryID int64, period domain.Period) (artifact *Artifact, err error) {
	start := time.Now()
	defer func() {
		observability.RecordReportGenerated(time.Since(start), err)
	}()

	data, err := g.aggregator.Aggregate(ctx, factoryID, period)
	if err != nil {
		return nil, fmt.Errorf("aggregate factory %d %s: %w", factoryID, period, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb := g.builder.Build(data)

	dir := filepath.Join(g.dir, "report-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	name := FileName(data.Factory.FactoryName, period, g.now(), g.serializer.Extension())
	a := &Artifact{
		Name:      name,
		Path:      filepath.Join(dir, name),
		FactoryID: factoryID,
		Period:    period,
		dir:       dir,
		logger:    g.logger,
	}
	// Error returns have already cleared the named result, so clean up through a.
	defer func() {
		if err != nil {
			_ = a.Dispose()
		}
	}()

	f, err := os.Create(a.Path)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}
	if err := g.serializer.Serialize(wb, f); err != nil {
		return nil, errors.Join(fmt.Errorf("serialize report: %w", err), f.Close())
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close report file: %w", err)
	}

	g.logger.Info("report generated", "factory_id", factoryID, "period", period.String(), "file", name,
		"workers", len(data.Workers), "elapsed", time.Since(start))
	return a, nil
}

// FileName builds "Report <factory> for <month> <year> at <dd-mm-yyyy><ext>".
func FileName(factoryName string, period domain.Period, at time.Time, ext string) string {
	return fmt.Sprintf("Report %s for %s %d at %s%s",
		sanitize(factoryName), strings.ToLower(period.MonthName()), period.Year, at.Format("02-01-2006"), ext)
}

func sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "factory"
	}
	return cleaned
}
