package service_test

import (
	"context"
	"time"

	"github.com/jengzang/rond-timeline/internal/coretime"
	"github.com/jengzang/rond-timeline/internal/repository"
	"github.com/jengzang/rond-timeline/internal/service"
)

// fakeRepo is a hand-written test double for service.TimelineRepository.
type fakeRepo struct {
	visits       []repository.VisitRow
	movements    []repository.MovementRow
	openRaw      *repository.OpenRawVisitRow
	visitTags    repository.TagMap
	locationTags repository.TagMap
	nearby       map[[2]float64][]repository.NearbyLocationRow

	visitsErr    error
	movementsErr error
	openRawErr   error
	nearbyErr    error

	nearbyCalls  int
	openRawCalls int
	tagCalls     [][]int64
}

// compile-time check: fakeRepo must satisfy service.TimelineRepository.
var _ service.TimelineRepository = (*fakeRepo)(nil)

func (f *fakeRepo) FetchVisits(context.Context, float64, float64) ([]repository.VisitRow, error) {
	return f.visits, f.visitsErr
}

func (f *fakeRepo) FetchMovements(context.Context, float64, float64) ([]repository.MovementRow, error) {
	return f.movements, f.movementsErr
}

func (f *fakeRepo) FetchLatestOpenRawVisit(context.Context, float64) (*repository.OpenRawVisitRow, error) {
	f.openRawCalls++
	return f.openRaw, f.openRawErr
}

func (f *fakeRepo) FetchNearbyLocations(_ context.Context, lat, lon float64, _ int) ([]repository.NearbyLocationRow, error) {
	f.nearbyCalls++
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	return f.nearby[[2]float64{lat, lon}], nil
}

func (f *fakeRepo) FetchVisitTags(_ context.Context, ids []int64) (repository.TagMap, error) {
	f.tagCalls = append(f.tagCalls, ids)
	return f.visitTags, nil
}

func (f *fakeRepo) FetchLocationTags(_ context.Context, ids []int64) (repository.TagMap, error) {
	f.tagCalls = append(f.tagCalls, ids)
	return f.locationTags, nil
}

// ---- helpers ---------------------------------------------------------------

var day = time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func core(t time.Time) float64 {
	return coretime.Encode(t)
}

func ptr[T any](v T) *T {
	return &v
}

func tagSet(tags ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

func fixedClock(t time.Time) service.Option {
	return service.WithClock(func() time.Time { return t })
}
