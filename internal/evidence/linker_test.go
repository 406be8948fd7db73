package evidence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/timesheet/internal/domain"
)

func TestLinkerShift(t *testing.T) {
	l := NewLinker("https://drive.example/root", "")
	require.Equal(t, "https://drive.example/root", l.DriveRoot())
	require.Equal(t, "https://drive.example/root", l.Placeholder())

	require.Equal(t, "https://drive.example/a.jpg", l.Shift(domain.Timesheet{EvidenceLink: "https://drive.example/a.jpg"}))
	require.Equal(t, "https://drive.example/root", l.Shift(domain.Timesheet{EvidenceLink: "  "}))

	custom := NewLinker("https://drive.example/root", "https://drive.example/missing")
	require.Equal(t, "https://drive.example/missing", custom.Shift(domain.Timesheet{}))
}

func TestLinkerWithoutDrive(t *testing.T) {
	l := NewLinker("", "")
	require.Empty(t, l.DriveRoot())
	require.Empty(t, l.Shift(domain.Timesheet{}))
}
