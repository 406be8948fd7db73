// Package resolution computes effective values from immutable history: the
// activity in force for a position after corrections, and the profile in
// force for a worker in a period. Nothing here caches; callers recompute per
// report so corrections added up to the moment of generation are honoured.
package resolution

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"example.com/timesheet/internal/domain"
)

// LatestCorrection returns the correction in force for positionID. The one
// with the greatest timestamp wins; equal timestamps go to the greater id,
// i.e. the later insertion.
func LatestCorrection(positionID int64, corrections []domain.Correction) (domain.Correction, bool) {
	var (
		best  domain.Correction
		found bool
	)
	for _, c := range corrections {
		if c.PositionID != positionID {
			continue
		}
		if !found || supersedes(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func supersedes(candidate, current domain.Correction) bool {
	if candidate.At.Equal(current.At) {
		return candidate.ID > current.ID
	}
	return candidate.At.After(current.At)
}

// EffectiveActivity returns the activity id in force for the position.
func EffectiveActivity(position domain.WorkerPosition, corrections []domain.Correction) int64 {
	if c, ok := LatestCorrection(position.ID, corrections); ok {
		return c.NewActivityID
	}
	return position.OriginalActivityID
}

// EffectiveActivities resolves every position in one pass over the log.
func EffectiveActivities(positions []domain.WorkerPosition, corrections []domain.Correction) map[int64]int64 {
	latest := make(map[int64]domain.Correction, len(corrections))
	for _, c := range corrections {
		if current, ok := latest[c.PositionID]; !ok || supersedes(c, current) {
			latest[c.PositionID] = c
		}
	}
	out := make(map[int64]int64, len(positions))
	for _, p := range positions {
		if c, ok := latest[p.ID]; ok {
			out[p.ID] = c.NewActivityID
			continue
		}
		out[p.ID] = p.OriginalActivityID
	}
	return out
}

// ProfileHistory is one worker's profile versions sorted by period.
type ProfileHistory struct {
	workerID int64
	versions []domain.WorkerProfile
}

// NewProfileHistory sorts the versions of a single worker. When two versions
// share a period the later one in the input wins.
func NewProfileHistory(workerID int64, profiles []domain.WorkerProfile) ProfileHistory {
	versions := make([]domain.WorkerProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.WorkerID == workerID {
			versions = append(versions, p)
		}
	}
	slices.SortStableFunc(versions, func(a, b domain.WorkerProfile) int {
		return a.Period.Compare(b.Period)
	})
	deduped := versions[:0]
	for _, v := range versions {
		if n := len(deduped); n > 0 && deduped[n-1].Period == v.Period {
			deduped[n-1] = v
			continue
		}
		deduped = append(deduped, v)
	}
	return ProfileHistory{workerID: workerID, versions: deduped}
}

// Histories groups a mixed profile list by worker.
func Histories(profiles []domain.WorkerProfile) map[int64]ProfileHistory {
	grouped := make(map[int64][]domain.WorkerProfile)
	for _, p := range profiles {
		grouped[p.WorkerID] = append(grouped[p.WorkerID], p)
	}
	out := make(map[int64]ProfileHistory, len(grouped))
	for workerID, list := range grouped {
		out[workerID] = NewProfileHistory(workerID, list)
	}
	return out
}

// Len returns the number of stored versions.
func (h ProfileHistory) Len() int { return len(h.versions) }

// At returns the version with the greatest period not after target.
func (h ProfileHistory) At(target domain.Period) (domain.WorkerProfile, error) {
	idx := sort.Search(len(h.versions), func(i int) bool {
		return h.versions[i].Period.Compare(target) > 0
	})
	if idx == 0 {
		return domain.WorkerProfile{}, fmt.Errorf("profile for worker %d at %s: %w", h.workerID, target, domain.ErrNotFound)
	}
	return h.versions[idx-1], nil
}

// Resolver applies the degraded profile fallback: when nothing is in force
// for the requested period, the profile effective today is used instead.
type Resolver struct {
	now func() time.Time
}

// NewResolver builds a Resolver; a nil clock means time.Now.
func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

// CurrentPeriod is the month the resolver's clock is in.
func (r *Resolver) CurrentPeriod() domain.Period {
	return domain.PeriodOf(r.now())
}

// Profile resolves the profile for period, reporting whether the fallback was
// taken. It fails with ErrNotFound only when both lookups miss.
func (r *Resolver) Profile(h ProfileHistory, period domain.Period) (domain.WorkerProfile, bool, error) {
	profile, err := h.At(period)
	if err == nil {
		return profile, false, nil
	}
	current := r.CurrentPeriod()
	if current == period {
		return domain.WorkerProfile{}, false, err
	}
	profile, fallbackErr := h.At(current)
	if fallbackErr != nil {
		return domain.WorkerProfile{}, false, fmt.Errorf("%w (fallback to %s also missing)", err, current)
	}
	return profile, true, nil
}

// ProfileBound is the upper period to load profile versions for so that both
// the requested period and the fallback can be resolved.
func (r *Resolver) ProfileBound(period domain.Period) domain.Period {
	current := r.CurrentPeriod()
	if current.Compare(period) > 0 {
		return current
	}
	return period
}
