// Package features converts a transport candidate into the fixed-length
// numeric vector the classifier artifact was trained on.
package features

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/carbonpath/server/pkg/geo"
	"github.com/carbonpath/server/pkg/types"
)

// VectorLen is the classifier artifact's feature count. Changing the order or
// count of Build's output requires retraining the paired model.
const VectorLen = 7

// Vector is one row of classifier input, in the trained field order:
// distance (m), duration (s), start seconds-of-day, end seconds-of-day,
// start hour, track point count, summed station proximity (miles).
type Vector [VectorLen]float64

// MalformedTransportError reports an activity whose shape makes feature
// extraction impossible (no track points, unparseable timestamps). The
// record is excluded from the run rather than crashing it.
type MalformedTransportError struct {
	Reason string
	Err    error
}

func (e *MalformedTransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed transport: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed transport: %s", e.Reason)
}

func (e *MalformedTransportError) Unwrap() error {
	return e.Err
}

func secondsOfDay(t time.Time) float64 {
	return float64(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Build derives the feature vector for one transport candidate.
// Returns a MalformedTransportError when the activity has no track points:
// the first/last point features are undefined and a sentinel coordinate
// would silently poison the classifier, so the caller must skip the record.
func Build(transport types.Activity, stationPoints []geo.Point) (Vector, error) {
	var v Vector

	if len(transport.TrackPoints) == 0 {
		return v, &MalformedTransportError{Reason: "no track points"}
	}

	start, err := types.ParseActivityTime(transport.StartTime)
	if err != nil {
		return v, &MalformedTransportError{Reason: "bad start time", Err: err}
	}
	end, err := types.ParseActivityTime(transport.EndTime)
	if err != nil {
		return v, &MalformedTransportError{Reason: "bad end time", Err: err}
	}

	first := transport.TrackPoints[0]
	last := transport.TrackPoints[len(transport.TrackPoints)-1]
	stationProximity := geo.MinDistance(geo.Point{Lat: first.Lat, Lon: first.Lon}, stationPoints) +
		geo.MinDistance(geo.Point{Lat: last.Lat, Lon: last.Lon}, stationPoints)

	v = Vector{
		transport.Distance,
		transport.Duration,
		secondsOfDay(start),
		secondsOfDay(end),
		float64(start.Hour()),
		float64(len(transport.TrackPoints)),
		stationProximity,
	}
	return v, nil
}

// stationCollection is the shape of the station reference set blob: a
// GeoJSON-like feature collection whose geometries carry [lon, lat] pairs.
type stationCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ParseStationPoints decodes the transit-entrance reference set. Loaded once
// per run and treated as read-only.
func ParseStationPoints(data []byte) ([]geo.Point, error) {
	var fc stationCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse station reference set: %w", err)
	}

	points := make([]geo.Point, 0, len(fc.Features))
	for i, f := range fc.Features {
		if len(f.Geometry.Coordinates) < 2 {
			return nil, fmt.Errorf("station feature %d: geometry has %d coordinates", i, len(f.Geometry.Coordinates))
		}
		points = append(points, geo.Point{Lon: f.Geometry.Coordinates[0], Lat: f.Geometry.Coordinates[1]})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("station reference set is empty")
	}
	return points, nil
}
