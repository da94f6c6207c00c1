// Package types holds the domain records shared across the pipeline.
//
// The tracking-service payloads are modelled as explicit optional-field
// structs rather than open maps: a nil slice means the field was absent in
// the upstream JSON, and every consumer states what it does with an absent
// field instead of assuming presence.
package types

import (
	"fmt"
	"time"
)

// TrackPoint is one GPS fix along an activity.
type TrackPoint struct {
	Lat  float64 `json:"lat" firestore:"lat"`
	Lon  float64 `json:"lon" firestore:"lon"`
	Time string  `json:"time,omitempty" firestore:"time,omitempty"`
}

// Activity is a detected motion event within a storyline segment.
// TrackPoints is nil when the storyline was fetched without trackPoints=true.
type Activity struct {
	Activity    string       `json:"activity"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
	Duration    float64      `json:"duration"` // seconds
	Distance    float64      `json:"distance"` // meters
	Steps       int          `json:"steps,omitempty"`
	TrackPoints []TrackPoint `json:"trackPoints,omitempty"`
}

// Segment is a contiguous portion of a day's storyline. Segments without
// detected motion carry no Activities field at all.
type Segment struct {
	Type       string     `json:"type"`
	StartTime  string     `json:"startTime,omitempty"`
	EndTime    string     `json:"endTime,omitempty"`
	Activities []Activity `json:"activities,omitempty"`
	LastUpdate string     `json:"lastUpdate,omitempty"`
}

// Storyline is the tracking service's daily summary payload for one date.
// Segments is nil for days the service recorded nothing.
type Storyline struct {
	Date         string    `json:"date"`
	Segments     []Segment `json:"segments,omitempty"`
	LastUpdate   string    `json:"lastUpdate,omitempty"`
	CaloriesIdle int       `json:"caloriesIdle,omitempty"`
}

// GeoJSON shapes persisted alongside transports and served to the map front
// end. Only the subset it consumes: Point features with lat/lon/time
// properties.

type Geometry struct {
	Type        string    `json:"type" firestore:"type"`
	Coordinates []float64 `json:"coordinates" firestore:"coordinates"` // [lon, lat]
}

type FeatureProperties struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
	Time      string  `json:"time" firestore:"time"`
	ID        string  `json:"id" firestore:"id"`
}

type Feature struct {
	Type       string            `json:"type" firestore:"type"`
	Properties FeatureProperties `json:"properties" firestore:"properties"`
	Geometry   Geometry          `json:"geometry" firestore:"geometry"`
}

type FeatureCollection struct {
	Type     string    `json:"type" firestore:"type"`
	Features []Feature `json:"features" firestore:"features"`
}

// TransportRecord is the pipeline's primary output: one qualifying activity
// enriched with a predicted mode, estimated carbon mass and geometry.
// Never mutated after persistence.
type TransportRecord struct {
	ID          string             `firestore:"id" json:"id"`
	UserID      string             `firestore:"user_id" json:"user_id"`
	RecordType  string             `firestore:"record_type" json:"record_type"`
	Date        string             `firestore:"date" json:"date"` // YYYY-MM-DD
	StartTime   time.Time          `firestore:"start_time" json:"start_time"`
	EndTime     time.Time          `firestore:"end_time" json:"end_time"`
	Distance    float64            `firestore:"distance" json:"distance"` // meters
	Duration    float64            `firestore:"duration" json:"duration"` // seconds
	Mode        string             `firestore:"mode" json:"mode"`
	CarbonKg    float64            `firestore:"carbon_kg" json:"carbon_kg"`
	TrackPoints []TrackPoint       `firestore:"track_points" json:"track_points"`
	GeoJSON     *FeatureCollection `firestore:"geojson" json:"geojson,omitempty"`
	LastUpdate  time.Time          `firestore:"last_update" json:"last_update"`
	RunID       string             `firestore:"run_id" json:"run_id"`
	CreatedAt   time.Time          `firestore:"created_at" json:"created_at"`
}

// NoTransportMarker records that a date was checked and had no qualifying
// transport, so the date is never refetched.
type NoTransportMarker struct {
	UserID    string    `firestore:"user_id" json:"user_id"`
	Date      string    `firestore:"date" json:"date"`
	CreatedAt time.Time `firestore:"created_at" json:"created_at"`
}

// MovesIntegration holds the tracking-service credential for a user. The
// pipeline treats AccessToken as read-only; refresh is owned by the token
// source.
type MovesIntegration struct {
	Enabled      bool      `firestore:"enabled" json:"enabled"`
	AccessToken  string    `firestore:"access_token" json:"access_token"`
	RefreshToken string    `firestore:"refresh_token" json:"refresh_token"`
	ExpiresAt    time.Time `firestore:"expires_at" json:"expires_at"`
	MovesUserID  int64     `firestore:"moves_user_id" json:"moves_user_id"`
}

// Integrations groups a user's linked external services.
type Integrations struct {
	Moves *MovesIntegration `firestore:"moves" json:"moves"`
}

// UserRecord is the profile document for a tracked user.
type UserRecord struct {
	UserID       string        `firestore:"user_id" json:"user_id"`
	JoinDate     string        `firestore:"join_date" json:"join_date"` // YYYY-MM-DD, service firstDate
	Integrations *Integrations `firestore:"integrations" json:"integrations"`
	CreatedAt    time.Time     `firestore:"created_at" json:"created_at"`
}

// timeLayouts are the timestamp shapes the tracking service emits. The live
// API uses the compact form (20130221T201542+0200); fixtures and the carbon
// service use RFC 3339.
var timeLayouts = []string{
	"20060102T150405Z0700",
	"20060102T150405Z",
	time.RFC3339,
}

// ParseActivityTime parses a tracking-service timestamp.
func ParseActivityTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized activity timestamp %q", s)
}

// dateLayouts cover the service's compact date form and the stored form.
var dateLayouts = []string{"20060102", "2006-01-02"}

// ParseServiceDate parses a tracking-service date into YYYY-MM-DD.
func ParseServiceDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized service date %q", s)
}
