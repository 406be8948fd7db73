package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"example.com/timesheet/internal/bootstrap"
	"example.com/timesheet/internal/config"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/report"
	"example.com/timesheet/internal/shifts"
)

func newGenerateCmd() *cobra.Command {
	var (
		pf        periodFlags
		factories []int64
		out       string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render reports for a month into a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := pf.period()
			if err != nil {
				return err
			}
			cfg := config.Load()
			log, err := bootstrap.Logger(cfg, "reportctl")
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, repo, err := bootstrap.Postgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			gen, err := bootstrap.ReportGenerator(cfg, repo, log)
			if err != nil {
				return err
			}
			batch := report.NewBatch(gen, repo, cfg.ReportConcurrency, log)
			written, err := generate(cmd.Context(), batch, period, factories, out, log)
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return err
		},
	}
	pf.register(cmd)
	cmd.Flags().Int64SliceVar(&factories, "factory", nil, "factory id; repeat for several, omit for all active factories")
	cmd.Flags().StringVar(&out, "out", ".", "output directory")
	return cmd
}

func newRequestCmd() *cobra.Command {
	var (
		pf          periodFlags
		factories   []int64
		requestedBy int64
	)
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Queue asynchronous report generation for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := pf.period()
			if err != nil {
				return err
			}
			cfg := config.Load()
			pool, repo, err := bootstrap.Postgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			service := shifts.NewService(repo, bootstrap.Linker(cfg), shifts.WithClock(bootstrap.Clock(cfg)))
			req, err := service.RequestReport(cmd.Context(), requestedBy, period, factories)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), req.RequestID)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().Int64SliceVar(&factories, "factory", nil, "factory id; repeat for several, omit for all active factories")
	cmd.Flags().Int64Var(&requestedBy, "requested-by", 0, "user id recorded as the requester")
	_ = cmd.MarkFlagRequired("requested-by")
	return cmd
}

// batchRunner is satisfied by *report.Batch.
type batchRunner interface {
	Generate(ctx context.Context, period domain.Period, factoryIDs []int64) (*report.BatchResult, error)
}

// generate renders the batch and copies every artifact into out. Paths of
// the copied files are returned even when some factories failed.
func generate(ctx context.Context, batch batchRunner, period domain.Period, factoryIDs []int64, out string, log *logger.Logger) ([]string, error) {
	if err := os.MkdirAll(out, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	result, err := batch.Generate(ctx, period, factoryIDs)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := result.Dispose(); err != nil {
			log.Warn("dispose artifacts", "error", err)
		}
	}()

	written := make([]string, 0, len(result.Artifacts))
	names := result.FileNames()
	for i, artifact := range result.Artifacts {
		dst := filepath.Join(out, names[i])
		if err := copyArtifact(artifact, dst); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	for _, failure := range result.Failures {
		log.Error("report failed", "factory_id", failure.FactoryID, "error", failure.Err)
	}
	return written, result.Err()
}

func copyArtifact(a *report.Artifact, dst string) (err error) {
	src, err := a.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(f, src)
	return err
}
