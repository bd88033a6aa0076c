package service

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/jengzang/rond-timeline/internal/models"
	"github.com/jengzang/rond-timeline/internal/repository"
	"github.com/jengzang/rond-timeline/internal/spatial"
)

// Proximity defaults
const (
	DefaultProximityRadiusMeters = 280.0
	DefaultProximityCandidates   = 25
)

// LocationFinder returns named locations near a coordinate
type LocationFinder interface {
	FetchNearbyLocations(ctx context.Context, lat, lon float64, limit int) ([]repository.NearbyLocationRow, error)
}

// ProximityOptions tunes the nearest-location heuristic
type ProximityOptions struct {
	RadiusMeters float64
	Candidates   int
}

func (o ProximityOptions) withDefaults() ProximityOptions {
	if o.RadiusMeters <= 0 {
		o.RadiusMeters = DefaultProximityRadiusMeters
	}
	if o.Candidates <= 0 {
		o.Candidates = DefaultProximityCandidates
	}
	return o
}

// ProximityMatch is the location chosen for a coordinate
type ProximityMatch struct {
	LocationID     int64
	Name           string
	LocationType   *int64
	POICategory    *string
	DistanceMeters float64
	HomeVisitCount int64
}

// IsHome reports whether the location has been visited as home before
func (m ProximityMatch) IsHome() bool {
	return m.HomeVisitCount > 0
}

// ProximityResolver recovers a location for visits whose own location has no
// name. Candidate lists are cached per coordinate for the lifetime of the
// resolver, which is one timeline build.
type ProximityResolver struct {
	finder LocationFinder
	opts   ProximityOptions
	cache  *cache.Cache
}

// NewProximityResolver creates a resolver with its own empty cache
func NewProximityResolver(finder LocationFinder, opts ProximityOptions) *ProximityResolver {
	return &ProximityResolver{
		finder: finder,
		opts:   opts.withDefaults(),
		cache:  cache.New(cache.NoExpiration, 0),
	}
}

// Resolve returns the best named location within the radius of (lat, lon),
// or nil. Locations with prior home visits win over closer ones.
func (r *ProximityResolver) Resolve(ctx context.Context, lat, lon *float64) (*ProximityMatch, error) {
	if lat == nil || lon == nil || !spatial.ValidCoordinate(*lat, *lon) {
		return nil, nil
	}

	candidates, err := r.candidates(ctx, *lat, *lon)
	if err != nil {
		return nil, err
	}

	var nearest, home *ProximityMatch
	for _, c := range candidates {
		if !spatial.ValidCoordinate(c.Latitude, c.Longitude) {
			continue
		}
		distance := spatial.HaversineDistance(*lat, *lon, c.Latitude, c.Longitude)
		if distance > r.opts.RadiusMeters {
			continue
		}
		match := &ProximityMatch{
			LocationID:     c.LocationID,
			Name:           c.LocationName,
			LocationType:   c.LocationType,
			POICategory:    c.POICategory,
			DistanceMeters: distance,
			HomeVisitCount: c.HomeVisitCount,
		}
		if nearest == nil || distance < nearest.DistanceMeters {
			nearest = match
		}
		if match.IsHome() && (home == nil ||
			match.HomeVisitCount > home.HomeVisitCount ||
			(match.HomeVisitCount == home.HomeVisitCount && distance < home.DistanceMeters)) {
			home = match
		}
	}

	if home != nil {
		return home, nil
	}
	return nearest, nil
}

// Category returns the category to show for a visit resolved to match
func (r *ProximityResolver) Category(match *ProximityMatch, fallback string) string {
	if match != nil && match.IsHome() {
		return models.HomeCategoryName
	}
	return fallback
}

func (r *ProximityResolver) candidates(ctx context.Context, lat, lon float64) ([]repository.NearbyLocationRow, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]repository.NearbyLocationRow), nil
	}

	rows, err := r.finder.FetchNearbyLocations(ctx, lat, lon, r.opts.Candidates)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, rows, cache.NoExpiration)
	return rows, nil
}
