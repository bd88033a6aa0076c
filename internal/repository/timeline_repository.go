package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jengzang/rond-timeline/internal/database"
	"github.com/jengzang/rond-timeline/internal/models"
)

// openDepartureThreshold separates real departures from the distant-future
// value the app writes while a raw visit is still open.
const openDepartureThreshold = 60000000000.0

// DefaultNearbyLimit is the default candidate pool size for FetchNearbyLocations
const DefaultNearbyLimit = 25

// Querier is the read side of the store
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]database.Row, error)
}

// VisitRow is a persisted visit joined with its location, activity and raw capture
type VisitRow struct {
	VisitID         int64
	LocationID      *int64
	Arrival         float64 // Core Data seconds
	Departure       float64 // Core Data seconds
	RawName         *string
	RawThoroughfare *string
	RawLatitude     *float64
	RawLongitude    *float64
	LocationType    *int64
	POICategory     *string
	LocationName    string // placeholder when the location has no name
	CategoryName    string // placeholder when neither location nor visit has an activity
}

// MovementRow is a movement joined with its transport and endpoint locations
type MovementRow struct {
	MovementID       int64
	Start            float64
	End              float64
	MovementType     *int64
	TransportID      *int64
	TransportName    *string
	FromVisitID      *int64
	ToVisitID        *int64
	FromLocationName *string
	ToLocationName   *string
}

// OpenRawVisitRow is a raw visit without a recorded departure
type OpenRawVisitRow struct {
	RawID           int64
	Arrival         float64
	RawName         *string
	RawThoroughfare *string
	RawLatitude     *float64
	RawLongitude    *float64
}

// NearbyLocationRow is a named location with its visit statistics
type NearbyLocationRow struct {
	LocationID     int64
	LocationName   string
	LocationType   *int64
	POICategory    *string
	Latitude       float64
	Longitude      float64
	HomeVisitCount int64
	VisitCount     int64
}

// TagMap maps an entity id to its set of tag names
type TagMap map[int64]map[string]struct{}

// TimelineRepository holds the queries behind a day timeline
type TimelineRepository struct {
	db Querier
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db Querier) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// FetchVisits returns top-level, unmerged visits overlapping [dayStart, dayEnd),
// ordered by arrival then id.
func (r *TimelineRepository) FetchVisits(ctx context.Context, dayStart, dayEnd float64) ([]VisitRow, error) {
	query, args, err := sq.Select(
		"v.Z_PK AS visit_id",
		"v.ZLOCATION AS location_id",
		"v.ZARRIVALDATE_ AS arrival_core",
		"v.ZDEPARTUREDATE_ AS departure_core",
		"rv.ZNAME AS raw_name",
		"rv.ZTHOROUGHFARE AS raw_thoroughfare",
		"rv.ZLATITUDE AS raw_latitude",
		"rv.ZLONGITUDE AS raw_longitude",
		"l.ZTYPE_ AS location_type",
		"l.ZCATEGORY_ AS poi_category",
	).
		Column(sq.Expr("COALESCE(NULLIF(TRIM(l.ZNAME_), ''), ?) AS location_name", models.UnknownLocationName)).
		Column(sq.Expr("COALESCE(NULLIF(la.ZNAME_, ''), NULLIF(va.ZNAME_, ''), ?) AS category_name", models.UncategorizedName)).
		From("ZVISIT v").
		LeftJoin("ZLOCATION l ON l.Z_PK = v.ZLOCATION").
		LeftJoin("ZACTIVITY la ON la.Z_PK = l.ZUSERACTIVITY_").
		LeftJoin("ZACTIVITY va ON va.Z_PK = v.ZACTIVITY_").
		LeftJoin("ZRAWVISIT rv ON rv.Z_PK = v.ZRAW").
		Where(sq.Eq{"v.ZPARENT": nil, "v.ZMERGEDTO": nil}).
		Where("v.ZARRIVALDATE_ IS NOT NULL AND v.ZDEPARTUREDATE_ IS NOT NULL").
		Where("v.ZARRIVALDATE_ < ?", dayEnd).
		Where("v.ZDEPARTUREDATE_ > ?", dayStart).
		OrderBy("v.ZARRIVALDATE_ ASC", "v.Z_PK ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build visits query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}

	visits := make([]VisitRow, 0, len(rows))
	for _, row := range rows {
		rr := rowReader{row: row}
		v := VisitRow{
			VisitID:         rr.int64("visit_id"),
			LocationID:      rr.optInt64("location_id"),
			Arrival:         rr.float("arrival_core"),
			Departure:       rr.float("departure_core"),
			RawName:         rr.optString("raw_name"),
			RawThoroughfare: rr.optString("raw_thoroughfare"),
			RawLatitude:     rr.optFloat("raw_latitude"),
			RawLongitude:    rr.optFloat("raw_longitude"),
			LocationType:    rr.optInt64("location_type"),
			POICategory:     rr.optString("poi_category"),
			LocationName:    rr.string("location_name"),
			CategoryName:    rr.string("category_name"),
		}
		if rr.err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", rr.err)
		}
		visits = append(visits, v)
	}
	return visits, nil
}

// FetchMovements returns movements overlapping [dayStart, dayEnd), ordered by
// start then id.
func (r *TimelineRepository) FetchMovements(ctx context.Context, dayStart, dayEnd float64) ([]MovementRow, error) {
	query, args, err := sq.Select(
		"m.Z_PK AS movement_id",
		"m.ZSTART_ AS start_core",
		"m.ZEND_ AS end_core",
		"m.ZTYPE_ AS movement_type",
		"m.ZTRANSPORT_ AS transport_id",
		"t.ZNAME_ AS transport_name",
		"m.ZVISITFROM_ AS from_visit_id",
		"m.ZVISITTO_ AS to_visit_id",
		"lf.ZNAME_ AS from_location_name",
		"lt.ZNAME_ AS to_location_name",
	).
		From("ZMOVEMENT m").
		LeftJoin("ZTRANSPORT t ON t.Z_PK = m.ZTRANSPORT_").
		LeftJoin("ZVISIT vf ON vf.Z_PK = m.ZVISITFROM_").
		LeftJoin("ZVISIT vt ON vt.Z_PK = m.ZVISITTO_").
		LeftJoin("ZLOCATION lf ON lf.Z_PK = vf.ZLOCATION").
		LeftJoin("ZLOCATION lt ON lt.Z_PK = vt.ZLOCATION").
		Where("m.ZSTART_ IS NOT NULL AND m.ZEND_ IS NOT NULL").
		Where("m.ZSTART_ < ?", dayEnd).
		Where("m.ZEND_ > ?", dayStart).
		OrderBy("m.ZSTART_ ASC", "m.Z_PK ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build movements query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}

	movements := make([]MovementRow, 0, len(rows))
	for _, row := range rows {
		rr := rowReader{row: row}
		m := MovementRow{
			MovementID:       rr.int64("movement_id"),
			Start:            rr.float("start_core"),
			End:              rr.float("end_core"),
			MovementType:     rr.optInt64("movement_type"),
			TransportID:      rr.optInt64("transport_id"),
			TransportName:    rr.optString("transport_name"),
			FromVisitID:      rr.optInt64("from_visit_id"),
			ToVisitID:        rr.optInt64("to_visit_id"),
			FromLocationName: rr.optString("from_location_name"),
			ToLocationName:   rr.optString("to_location_name"),
		}
		if rr.err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", rr.err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// FetchLatestOpenRawVisit returns the most recent raw visit that arrived
// before dayEnd and has no real departure, or nil when there is none.
func (r *TimelineRepository) FetchLatestOpenRawVisit(ctx context.Context, dayEnd float64) (*OpenRawVisitRow, error) {
	query, args, err := sq.Select(
		"rv.Z_PK AS raw_id",
		"rv.ZARRIVALDATE_ AS arrival_core",
		"rv.ZNAME AS raw_name",
		"rv.ZTHOROUGHFARE AS raw_thoroughfare",
		"rv.ZLATITUDE AS raw_latitude",
		"rv.ZLONGITUDE AS raw_longitude",
	).
		From("ZRAWVISIT rv").
		Where("rv.ZARRIVALDATE_ IS NOT NULL").
		Where("rv.ZARRIVALDATE_ < ?", dayEnd).
		Where("(rv.ZDEPARTUREDATE_ IS NULL OR rv.ZDEPARTUREDATE_ > ?)", openDepartureThreshold).
		OrderBy("rv.ZARRIVALDATE_ DESC", "rv.Z_PK DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build open raw visit query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query open raw visit: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rr := rowReader{row: rows[0]}
	raw := &OpenRawVisitRow{
		RawID:           rr.int64("raw_id"),
		Arrival:         rr.float("arrival_core"),
		RawName:         rr.optString("raw_name"),
		RawThoroughfare: rr.optString("raw_thoroughfare"),
		RawLatitude:     rr.optFloat("raw_latitude"),
		RawLongitude:    rr.optFloat("raw_longitude"),
	}
	if rr.err != nil {
		return nil, fmt.Errorf("failed to scan open raw visit: %w", rr.err)
	}
	return raw, nil
}

// FetchNearbyLocations returns up to limit named locations ordered by squared
// coordinate distance to (lat, lon). The ordering is a coarse prefilter in
// degree space, not a true distance.
func (r *TimelineRepository) FetchNearbyLocations(ctx context.Context, lat, lon float64, limit int) ([]NearbyLocationRow, error) {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	query, args, err := sq.Select(
		"l.Z_PK AS location_id",
		"l.ZNAME_ AS location_name",
		"l.ZTYPE_ AS location_type",
		"l.ZCATEGORY_ AS poi_category",
		"l.ZLATITUDE AS latitude",
		"l.ZLONGITUDE AS longitude",
		"SUM(CASE WHEN va.ZISHOME = 1 THEN 1 ELSE 0 END) AS home_visit_count",
		"COUNT(v.Z_PK) AS visit_count",
	).
		From("ZLOCATION l").
		LeftJoin("ZVISIT v ON v.ZLOCATION = l.Z_PK AND v.ZPARENT IS NULL AND v.ZMERGEDTO IS NULL").
		LeftJoin("ZACTIVITY va ON va.Z_PK = v.ZACTIVITY_").
		Where("l.ZNAME_ IS NOT NULL AND TRIM(l.ZNAME_) <> ''").
		Where("l.ZLATITUDE IS NOT NULL AND l.ZLONGITUDE IS NOT NULL").
		GroupBy("l.Z_PK").
		OrderByClause(
			"((l.ZLATITUDE - ?) * (l.ZLATITUDE - ?)) + ((l.ZLONGITUDE - ?) * (l.ZLONGITUDE - ?)) ASC",
			lat, lat, lon, lon,
		).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build nearby locations query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby locations: %w", err)
	}

	locations := make([]NearbyLocationRow, 0, len(rows))
	for _, row := range rows {
		rr := rowReader{row: row}
		l := NearbyLocationRow{
			LocationID:     rr.int64("location_id"),
			LocationName:   rr.string("location_name"),
			LocationType:   rr.optInt64("location_type"),
			POICategory:    rr.optString("poi_category"),
			Latitude:       rr.float("latitude"),
			Longitude:      rr.float("longitude"),
			HomeVisitCount: rr.int64("home_visit_count"),
			VisitCount:     rr.int64("visit_count"),
		}
		if rr.err != nil {
			return nil, fmt.Errorf("failed to scan nearby location: %w", rr.err)
		}
		locations = append(locations, l)
	}
	return locations, nil
}

// FetchVisitTags returns the tag names attached to each visit id
func (r *TimelineRepository) FetchVisitTags(ctx context.Context, visitIDs []int64) (TagMap, error) {
	if len(visitIDs) == 0 {
		return TagMap{}, nil
	}
	builder := sq.Select("jv.Z_17VISITS_ AS owner_id", "t.ZNAME_ AS tag_name").
		From("Z_10VISITS_ jv").
		Join("ZTAG t ON t.Z_PK = jv.Z_10TAGS_5").
		Where(sq.Eq{"jv.Z_17VISITS_": visitIDs})
	return r.fetchTags(ctx, builder, "visit")
}

// FetchLocationTags returns the tag names attached to each location id
func (r *TimelineRepository) FetchLocationTags(ctx context.Context, locationIDs []int64) (TagMap, error) {
	if len(locationIDs) == 0 {
		return TagMap{}, nil
	}
	builder := sq.Select("jl.Z_5LOCATIONS_ AS owner_id", "t.ZNAME_ AS tag_name").
		From("Z_5TAGS_ jl").
		Join("ZTAG t ON t.Z_PK = jl.Z_10TAGS_2").
		Where(sq.Eq{"jl.Z_5LOCATIONS_": locationIDs})
	return r.fetchTags(ctx, builder, "location")
}

func (r *TimelineRepository) fetchTags(ctx context.Context, builder sq.SelectBuilder, owner string) (TagMap, error) {
	query, args, err := builder.
		Where("t.ZNAME_ IS NOT NULL AND TRIM(t.ZNAME_) <> ''").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s tags query: %w", owner, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s tags: %w", owner, err)
	}

	tags := make(TagMap)
	for _, row := range rows {
		rr := rowReader{row: row}
		id := rr.int64("owner_id")
		name := rr.string("tag_name")
		if rr.err != nil {
			return nil, fmt.Errorf("failed to scan %s tag: %w", owner, rr.err)
		}
		if tags[id] == nil {
			tags[id] = make(map[string]struct{})
		}
		tags[id][name] = struct{}{}
	}
	return tags, nil
}
