package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jengzang/rond-timeline/internal/coretime"
	"github.com/jengzang/rond-timeline/internal/database"
	"github.com/jengzang/rond-timeline/internal/models"
	"github.com/jengzang/rond-timeline/internal/repository"
)

// TimelineRepository is the query catalog the timeline is built from
type TimelineRepository interface {
	LocationFinder
	FetchVisits(ctx context.Context, dayStart, dayEnd float64) ([]repository.VisitRow, error)
	FetchMovements(ctx context.Context, dayStart, dayEnd float64) ([]repository.MovementRow, error)
	FetchLatestOpenRawVisit(ctx context.Context, dayEnd float64) (*repository.OpenRawVisitRow, error)
	FetchVisitTags(ctx context.Context, visitIDs []int64) (repository.TagMap, error)
	FetchLocationTags(ctx context.Context, locationIDs []int64) (repository.TagMap, error)
}

// Option configures a TimelineService
type Option func(*TimelineService)

// WithProximity overrides the proximity heuristic settings
func WithProximity(opts ProximityOptions) Option {
	return func(s *TimelineService) { s.proximity = opts }
}

// WithClock overrides the clock used to detect "today" and close ongoing stays
func WithClock(now func() time.Time) Option {
	return func(s *TimelineService) { s.now = now }
}

// TimelineService builds day timelines. It holds no per-build state, so one
// instance may serve concurrent builds as long as its repository can.
type TimelineService struct {
	repo      TimelineRepository
	proximity ProximityOptions
	now       func() time.Time
}

// NewTimelineService creates a new timeline service
func NewTimelineService(repo TimelineRepository, opts ...Option) *TimelineService {
	s := &TimelineService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTimelineServiceForStore wires a service to a read-only SQLite store
func NewTimelineServiceForStore(cfg database.Config, opts ...Option) (*TimelineService, error) {
	client, err := database.NewSQLiteReadClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewTimelineService(repository.NewTimelineRepository(client), opts...), nil
}

// BuildTimeline returns every visit and movement overlapping the calendar date
// carried by queryDate, ordered by start. When that date is today an ongoing
// stay is synthesized from the latest open raw visit. Repository errors are
// returned as is.
func (s *TimelineService) BuildTimeline(ctx context.Context, queryDate time.Time, loc *time.Location, timezoneName string) (*models.TimelineResult, error) {
	if loc == nil {
		loc = time.UTC
	}
	dayStart, dayEnd := coretime.DayWindow(queryDate, loc)
	dayStartCore := coretime.Encode(dayStart)
	dayEndCore := coretime.Encode(dayEnd)

	visitRows, err := s.repo.FetchVisits(ctx, dayStartCore, dayEndCore)
	if err != nil {
		return nil, err
	}
	movementRows, err := s.repo.FetchMovements(ctx, dayStartCore, dayEndCore)
	if err != nil {
		return nil, err
	}

	visitIDs, locationIDs := collectIDs(visitRows)
	visitTags, err := s.repo.FetchVisitTags(ctx, visitIDs)
	if err != nil {
		return nil, err
	}
	locationTags, err := s.repo.FetchLocationTags(ctx, locationIDs)
	if err != nil {
		return nil, err
	}

	resolver := NewProximityResolver(s.repo, s.proximity)
	events := make([]models.Event, 0, len(visitRows)+len(movementRows)+1)
	visits := make([]models.VisitEvent, 0, len(visitRows))

	for _, row := range visitRows {
		visit, err := s.buildVisit(ctx, resolver, row, visitTags, locationTags, loc)
		if err != nil {
			return nil, err
		}
		visits = append(visits, visit)
		events = append(events, visit)
	}

	for _, row := range movementRows {
		events = append(events, buildMovement(row, loc))
	}

	now := s.now().In(loc)
	if coretime.SameDate(now, dayStart, loc) {
		ongoing, err := s.buildOngoingVisit(ctx, resolver, dayEndCore, visits, now, loc)
		if err != nil {
			return nil, err
		}
		if ongoing != nil {
			events = append(events, *ongoing)
		}
	}

	SortEvents(events)

	return &models.TimelineResult{
		QueryDate: dayStart,
		Timezone:  timezoneName,
		Events:    events,
	}, nil
}

func (s *TimelineService) buildVisit(
	ctx context.Context,
	resolver *ProximityResolver,
	row repository.VisitRow,
	visitTags, locationTags repository.TagMap,
	loc *time.Location,
) (models.VisitEvent, error) {
	arrival := coretime.Decode(row.Arrival, loc)
	departure := coretime.Decode(row.Departure, loc)

	identity := locationIdentity{
		Name:         row.LocationName,
		Category:     row.CategoryName,
		LocationType: row.LocationType,
		POICategory:  row.POICategory,
	}
	if models.IsPlaceholderName(row.LocationName) {
		resolved, err := resolveIdentity(ctx, resolver, identity, row.RawName, row.RawThoroughfare, row.RawLatitude, row.RawLongitude)
		if err != nil {
			return models.VisitEvent{}, err
		}
		identity = resolved
	}

	var ownTags, placeTags map[string]struct{}
	ownTags = visitTags[row.VisitID]
	if row.LocationID != nil {
		placeTags = locationTags[*row.LocationID]
	}

	return models.VisitEvent{
		VisitID:      row.VisitID,
		LocationName: identity.Name,
		CategoryName: identity.Category,
		LocationType: identity.LocationType,
		POICategory:  identity.POICategory,
		Tags:         mergeTags(ownTags, placeTags),
		ArrivalAt:    arrival,
		DepartureAt:  departure,
		IsCrossDay:   !coretime.SameDate(arrival, departure, loc),
	}, nil
}

func (s *TimelineService) buildOngoingVisit(
	ctx context.Context,
	resolver *ProximityResolver,
	dayEndCore float64,
	visits []models.VisitEvent,
	now time.Time,
	loc *time.Location,
) (*models.VisitEvent, error) {
	raw, err := s.repo.FetchLatestOpenRawVisit(ctx, dayEndCore)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	arrival := coretime.Decode(raw.Arrival, loc)
	for _, v := range visits {
		if !arrival.Before(v.ArrivalAt) && !arrival.After(v.DepartureAt) {
			return nil, nil
		}
	}

	departure := now
	if departure.Before(arrival) {
		departure = arrival
	}

	identity, err := resolveIdentity(ctx, resolver, locationIdentity{Category: models.UncategorizedName},
		raw.RawName, raw.RawThoroughfare, raw.RawLatitude, raw.RawLongitude)
	if err != nil {
		return nil, err
	}

	return &models.VisitEvent{
		VisitID:      ongoingVisitID(raw.RawID),
		LocationName: identity.Name,
		CategoryName: identity.Category,
		LocationType: identity.LocationType,
		POICategory:  identity.POICategory,
		Tags:         []string{},
		ArrivalAt:    arrival,
		DepartureAt:  departure,
		IsCrossDay:   !coretime.SameDate(arrival, departure, loc),
		IsOngoing:    true,
	}, nil
}

// ongoingVisitID derives the negative id of a synthesized stay from its raw row
func ongoingVisitID(rawID int64) int64 {
	if rawID > 0 {
		return -rawID
	}
	if rawID < 0 {
		return rawID
	}
	return -1
}

type locationIdentity struct {
	Name         string
	Category     string
	LocationType *int64
	POICategory  *string
}

// resolveIdentity fills in a location for a visit without a usable name:
// nearby known location, then the raw captured name, then the raw street,
// then the unknown placeholder.
func resolveIdentity(
	ctx context.Context,
	resolver *ProximityResolver,
	base locationIdentity,
	rawName, rawStreet *string,
	lat, lon *float64,
) (locationIdentity, error) {
	match, err := resolver.Resolve(ctx, lat, lon)
	if err != nil {
		return locationIdentity{}, err
	}

	out := base
	switch {
	case match != nil:
		out.Name = match.Name
		out.Category = resolver.Category(match, base.Category)
		if out.LocationType == nil {
			out.LocationType = match.LocationType
		}
		if out.POICategory == nil {
			out.POICategory = match.POICategory
		}
	case rawName != nil && !models.IsPlaceholderName(*rawName):
		out.Name = strings.TrimSpace(*rawName)
	case models.NormalizeText(rawStreet) != nil:
		out.Name = *models.NormalizeText(rawStreet)
	default:
		out.Name = models.UnknownLocationName
	}
	return out, nil
}

func buildMovement(row repository.MovementRow, loc *time.Location) models.MovementEvent {
	start := coretime.Decode(row.Start, loc)
	end := coretime.Decode(row.End, loc)

	var code int64
	if row.MovementType != nil {
		code = *row.MovementType
	}
	mode := models.TransportModeFromType(code)

	name := mode.Label()
	if n := models.NormalizeText(row.TransportName); n != nil {
		name = *n
	}

	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	return models.MovementEvent{
		MovementID:       row.MovementID,
		TransportName:    name,
		TransportMode:    mode,
		StartTime:        start,
		EndTime:          end,
		DurationMinutes:  int64(elapsed / time.Minute),
		FromLocationName: models.NormalizeText(row.FromLocationName),
		ToLocationName:   models.NormalizeText(row.ToLocationName),
	}
}

func collectIDs(rows []repository.VisitRow) (visitIDs, locationIDs []int64) {
	visitIDs = make([]int64, 0, len(rows))
	seen := make(map[int64]struct{})
	for _, row := range rows {
		visitIDs = append(visitIDs, row.VisitID)
		if row.LocationID == nil {
			continue
		}
		if _, ok := seen[*row.LocationID]; ok {
			continue
		}
		seen[*row.LocationID] = struct{}{}
		locationIDs = append(locationIDs, *row.LocationID)
	}
	sort.Slice(locationIDs, func(i, j int) bool { return locationIDs[i] < locationIDs[j] })
	return visitIDs, locationIDs
}

func mergeTags(sets ...map[string]struct{}) []string {
	merged := make(map[string]struct{})
	for _, set := range sets {
		for tag := range set {
			merged[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(merged))
	for tag := range merged {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// SortEvents orders events by start instant; on equal starts visits come
// before movements, then lower ids first.
func SortEvents(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.StartAt().Equal(b.StartAt()) {
			return a.StartAt().Before(b.StartAt())
		}
		if ra, rb := kindRank(a), kindRank(b); ra != rb {
			return ra < rb
		}
		return a.StableID() < b.StableID()
	})
}

func kindRank(e models.Event) int {
	switch e.(type) {
	case models.VisitEvent:
		return 0
	case models.MovementEvent:
		return 1
	default:
		panic(fmt.Sprintf("unexpected event type %T", e))
	}
}
