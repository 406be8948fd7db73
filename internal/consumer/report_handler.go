package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/events"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/report"
)

// BatchRunner renders a month for several factories.
type BatchRunner interface {
	Generate(ctx context.Context, period domain.Period, factoryIDs []int64) (*report.BatchResult, error)
}

// ReportRequestHandler runs report.requested events and archives the files.
type ReportRequestHandler struct {
	batch      BatchRunner
	archiveDir string
	runs       RunLog
	now        func() time.Time
	logger     *logger.Logger
}

// NewReportRequestHandler constructs a handler archiving under archiveDir.
// A nil runs disables redelivery detection.
func NewReportRequestHandler(batch BatchRunner, archiveDir string, runs RunLog, l *logger.Logger) *ReportRequestHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &ReportRequestHandler{batch: batch, archiveDir: archiveDir, runs: runs, now: time.Now, logger: l}
}

// Handle implements Handler. Malformed requests are logged and acknowledged;
// only infrastructure failures are returned.
func (h *ReportRequestHandler) Handle(ctx context.Context, msg Message) error {
	var req events.ReportRequested
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		h.logger.Error("malformed report request", "offset", msg.Offset, "error", err)
		return nil
	}
	period := domain.Period{Year: req.Year, Month: req.Month}
	if err := period.Validate(); err != nil || req.RequestID == "" {
		h.logger.Error("invalid report request", "request_id", req.RequestID, "period", period.String(), "error", err)
		return nil
	}
	log := h.logger.With("request_id", req.RequestID, "period", period.String())

	if h.runs != nil {
		seen, err := h.runs.Seen(ctx, req.RequestID)
		if err != nil {
			return fmt.Errorf("check run log: %w", err)
		}
		if seen {
			recordDuplicateRequest()
			log.Info("report request already processed")
			return nil
		}
	}

	result, err := h.batch.Generate(ctx, period, req.FactoryIDs)
	if err != nil {
		if errors.Is(err, domain.ErrBadFormat) {
			log.Error("report request rejected", "error", err)
			return nil
		}
		return fmt.Errorf("generate reports: %w", err)
	}
	defer func() {
		if err := result.Dispose(); err != nil {
			log.Warn("failed to dispose report artifacts", "error", err)
		}
	}()

	dest := filepath.Join(h.archiveDir, fmt.Sprintf("%04d-%02d", period.Year, period.Month), req.RequestID)
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	names := result.FileNames()
	for i, a := range result.Artifacts {
		if err := archive(a, filepath.Join(dest, names[i])); err != nil {
			return fmt.Errorf("archive factory %d: %w", a.FactoryID, err)
		}
	}
	for _, f := range result.Failures {
		log.Warn("factory report failed", "factory_id", f.FactoryID, "error", f.Err)
	}
	recordReportRun(len(result.Artifacts), len(result.Failures))

	if h.runs != nil {
		if err := h.runs.Record(ctx, Run{
			RequestID:   req.RequestID,
			RequestedBy: req.RequestedBy,
			Year:        period.Year,
			Month:       period.Month,
			Succeeded:   len(result.Artifacts),
			Failed:      len(result.Failures),
			ArchivePath: dest,
			FinishedAt:  h.now().UTC(),
		}); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	log.Info("report request processed", "archived", len(result.Artifacts), "failed", len(result.Failures), "dir", dest)
	return nil
}

func archive(a *report.Artifact, path string) (err error) {
	src, err := a.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dst.Close())
	}()
	_, err = io.Copy(dst, src)
	return err
}
