// Package testutil builds throwaway SQLite files shaped like the tracking
// app's Core Data store, for repository and store tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jengzang/rond-timeline/internal/coretime"
)

// OpenDeparture is the distant-future departure the app writes for a raw
// visit that is still in progress.
const OpenDeparture = 63113904000.0

var coreDataSchema = []string{
	`CREATE TABLE ZACTIVITY (Z_PK INTEGER PRIMARY KEY, ZNAME_ VARCHAR, ZISHOME INTEGER)`,
	`CREATE TABLE ZLOCATION (Z_PK INTEGER PRIMARY KEY, ZNAME_ VARCHAR, ZTYPE_ INTEGER, ZCATEGORY_ VARCHAR,
		ZLATITUDE FLOAT, ZLONGITUDE FLOAT, ZUSERACTIVITY_ INTEGER)`,
	`CREATE TABLE ZRAWVISIT (Z_PK INTEGER PRIMARY KEY, ZARRIVALDATE_ TIMESTAMP, ZDEPARTUREDATE_ TIMESTAMP,
		ZNAME VARCHAR, ZTHOROUGHFARE VARCHAR, ZLATITUDE FLOAT, ZLONGITUDE FLOAT)`,
	`CREATE TABLE ZVISIT (Z_PK INTEGER PRIMARY KEY, ZLOCATION INTEGER, ZARRIVALDATE_ TIMESTAMP,
		ZDEPARTUREDATE_ TIMESTAMP, ZRAW INTEGER, ZACTIVITY_ INTEGER, ZPARENT INTEGER, ZMERGEDTO INTEGER)`,
	`CREATE TABLE ZTRANSPORT (Z_PK INTEGER PRIMARY KEY, ZNAME_ VARCHAR)`,
	`CREATE TABLE ZMOVEMENT (Z_PK INTEGER PRIMARY KEY, ZSTART_ TIMESTAMP, ZEND_ TIMESTAMP, ZTYPE_ INTEGER,
		ZTRANSPORT_ INTEGER, ZVISITFROM_ INTEGER, ZVISITTO_ INTEGER)`,
	`CREATE TABLE ZTAG (Z_PK INTEGER PRIMARY KEY, ZNAME_ VARCHAR)`,
	`CREATE TABLE Z_10VISITS_ (Z_10TAGS_5 INTEGER, Z_17VISITS_ INTEGER)`,
	`CREATE TABLE Z_5TAGS_ (Z_5LOCATIONS_ INTEGER, Z_10TAGS_2 INTEGER)`,
}

// CoreDataDB is a writable handle on a test store
type CoreDataDB struct {
	Path string
	DB   *sql.DB
	t    *testing.T
}

// NewCoreDataDB creates an empty store in t.TempDir(). The handle is closed
// when the test finishes.
func NewCoreDataDB(t *testing.T) *CoreDataDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "LifeEasy.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("testutil.NewCoreDataDB: open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, stmt := range coreDataSchema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("testutil.NewCoreDataDB: schema: %v", err)
		}
	}
	return &CoreDataDB{Path: path, DB: db, t: t}
}

// Exec runs a statement and fails the test on error
func (c *CoreDataDB) Exec(query string, args ...any) {
	c.t.Helper()
	if _, err := c.DB.Exec(query, args...); err != nil {
		c.t.Fatalf("testutil.Exec %q: %v", query, err)
	}
}

// Core converts an instant to the store's numeric form
func Core(t time.Time) float64 {
	return coretime.Encode(t)
}

// AddActivity inserts a ZACTIVITY row
func (c *CoreDataDB) AddActivity(id int64, name string, isHome bool) {
	c.t.Helper()
	home := 0
	if isHome {
		home = 1
	}
	c.Exec(`INSERT INTO ZACTIVITY (Z_PK, ZNAME_, ZISHOME) VALUES (?, ?, ?)`, id, name, home)
}

// Location describes a ZLOCATION row
type Location struct {
	ID         int64
	Name       any
	Type       any
	Category   any
	Lat, Lon   any
	ActivityID any
}

// AddLocation inserts a ZLOCATION row
func (c *CoreDataDB) AddLocation(l Location) {
	c.t.Helper()
	c.Exec(`INSERT INTO ZLOCATION (Z_PK, ZNAME_, ZTYPE_, ZCATEGORY_, ZLATITUDE, ZLONGITUDE, ZUSERACTIVITY_)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, l.ID, l.Name, l.Type, l.Category, l.Lat, l.Lon, l.ActivityID)
}

// RawVisit describes a ZRAWVISIT row
type RawVisit struct {
	ID           int64
	Arrival      time.Time
	Departure    float64 // raw value so tests can write OpenDeparture
	Name, Street any
	Lat, Lon     any
}

// AddRawVisit inserts a ZRAWVISIT row
func (c *CoreDataDB) AddRawVisit(r RawVisit) {
	c.t.Helper()
	c.Exec(`INSERT INTO ZRAWVISIT (Z_PK, ZARRIVALDATE_, ZDEPARTUREDATE_, ZNAME, ZTHOROUGHFARE, ZLATITUDE, ZLONGITUDE)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, r.ID, Core(r.Arrival), r.Departure, r.Name, r.Street, r.Lat, r.Lon)
}

// Visit describes a ZVISIT row
type Visit struct {
	ID         int64
	LocationID any
	Arrival    time.Time
	Departure  time.Time
	RawID      any
	ActivityID any
	ParentID   any
	MergedTo   any
}

// AddVisit inserts a ZVISIT row
func (c *CoreDataDB) AddVisit(v Visit) {
	c.t.Helper()
	c.Exec(`INSERT INTO ZVISIT (Z_PK, ZLOCATION, ZARRIVALDATE_, ZDEPARTUREDATE_, ZRAW, ZACTIVITY_, ZPARENT, ZMERGEDTO)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.LocationID, Core(v.Arrival), Core(v.Departure), v.RawID, v.ActivityID, v.ParentID, v.MergedTo)
}

// Movement describes a ZMOVEMENT row
type Movement struct {
	ID          int64
	Start, End  time.Time
	Type        any
	TransportID any
	FromVisitID any
	ToVisitID   any
}

// AddMovement inserts a ZMOVEMENT row
func (c *CoreDataDB) AddMovement(m Movement) {
	c.t.Helper()
	c.Exec(`INSERT INTO ZMOVEMENT (Z_PK, ZSTART_, ZEND_, ZTYPE_, ZTRANSPORT_, ZVISITFROM_, ZVISITTO_)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, Core(m.Start), Core(m.End), m.Type, m.TransportID, m.FromVisitID, m.ToVisitID)
}

// AddTransport inserts a ZTRANSPORT row
func (c *CoreDataDB) AddTransport(id int64, name any) {
	c.t.Helper()
	c.Exec(`INSERT INTO ZTRANSPORT (Z_PK, ZNAME_) VALUES (?, ?)`, id, name)
}

// AddTag inserts a ZTAG row
func (c *CoreDataDB) AddTag(id int64, name any) {
	c.t.Helper()
	c.Exec(`INSERT INTO ZTAG (Z_PK, ZNAME_) VALUES (?, ?)`, id, name)
}

// TagVisit links a tag to a visit
func (c *CoreDataDB) TagVisit(visitID, tagID int64) {
	c.t.Helper()
	c.Exec(`INSERT INTO Z_10VISITS_ (Z_10TAGS_5, Z_17VISITS_) VALUES (?, ?)`, tagID, visitID)
}

// TagLocation links a tag to a location
func (c *CoreDataDB) TagLocation(locationID, tagID int64) {
	c.t.Helper()
	c.Exec(`INSERT INTO Z_5TAGS_ (Z_5LOCATIONS_, Z_10TAGS_2) VALUES (?, ?)`, locationID, tagID)
}
