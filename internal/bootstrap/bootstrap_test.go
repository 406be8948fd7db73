package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/timesheet/internal/config"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/persistence/memory"
	"example.com/timesheet/internal/platform/logger"
)

func TestClockUsesConfiguredZone(t *testing.T) {
	cfg := config.Config{Timezone: "Europe/Berlin"}
	require.Equal(t, "Europe/Berlin", Clock(cfg)().Location().String())
}

func TestLinkerFallsBackToDriveRoot(t *testing.T) {
	l := Linker(config.Config{DriveRootURL: "https://drive.example/root"})
	require.Equal(t, "https://drive.example/root", l.Placeholder())
}

func TestReportGeneratorRejectsBadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("labels: [broken"), 0o600))

	_, err := ReportGenerator(config.Config{LayoutConfig: path, ReportDir: t.TempDir()}, memory.NewStore(), logger.Nop())
	require.Error(t, err)
}

func TestReportGeneratorRendersEmptyFactory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f, err := store.CreateFactory(ctx, domain.Factory{CompanyName: "Acme", FactoryName: "North"})
	require.NoError(t, err)

	gen, err := ReportGenerator(config.Config{ReportDir: t.TempDir(), Timezone: "UTC"}, store, logger.FromZap(zaptest.NewLogger(t)))
	require.NoError(t, err)

	now := time.Now()
	artifact, err := gen.Generate(ctx, f.ID, domain.PeriodOf(now))
	require.NoError(t, err)
	defer artifact.Dispose()

	info, err := os.Stat(artifact.Path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}
