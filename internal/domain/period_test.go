package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeriodNextPrevWrapYear(t *testing.T) {
	require.Equal(t, Period{Year: 2025, Month: 1}, Period{Year: 2024, Month: 12}.Next())
	require.Equal(t, Period{Year: 2024, Month: 12}, Period{Year: 2025, Month: 1}.Prev())
	require.Equal(t, Period{Year: 2025, Month: 7}, Period{Year: 2025, Month: 6}.Next())
}

func TestPeriodCompare(t *testing.T) {
	a := Period{Year: 2024, Month: 12}
	b := Period{Year: 2025, Month: 1}
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
	require.Equal(t, -1, Period{Year: 2025, Month: 2}.Compare(Period{Year: 2025, Month: 3}))
}

func TestPeriodDays(t *testing.T) {
	require.Equal(t, 29, Period{Year: 2024, Month: 2}.Days())
	require.Equal(t, 28, Period{Year: 2025, Month: 2}.Days())
	require.Equal(t, 31, Period{Year: 2025, Month: 12}.Days())
	require.Equal(t, 30, Period{Year: 2025, Month: 4}.Days())
}

func TestPeriodContainsAndOf(t *testing.T) {
	ts := time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC)
	p := PeriodOf(ts)
	require.Equal(t, Period{Year: 2025, Month: 3}, p)
	require.True(t, p.Contains(ts))
	require.False(t, p.Contains(ts.Add(time.Minute)))
}

func TestPeriodValidate(t *testing.T) {
	require.NoError(t, Period{Year: 2025, Month: 5}.Validate())
	require.ErrorIs(t, Period{Year: 2025, Month: 13}.Validate(), ErrBadFormat)
	require.ErrorIs(t, Period{Year: 1800, Month: 1}.Validate(), ErrBadFormat)
}

func TestMonthByName(t *testing.T) {
	m, ok := MonthByName(" march ")
	require.True(t, ok)
	require.Equal(t, 3, m)

	_, ok = MonthByName("smarch")
	require.False(t, ok)
	require.Equal(t, "October", Period{Year: 2025, Month: 10}.MonthName())
}

func TestRoleHasMask(t *testing.T) {
	mask := RoleWorker | RoleMaster
	require.True(t, RoleMaster.Has(mask))
	require.False(t, RoleAdmin.Has(mask))

	r, ok := ParseRole("Admin")
	require.True(t, ok)
	require.Equal(t, RoleAdmin, r)
}
