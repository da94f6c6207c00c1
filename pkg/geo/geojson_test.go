package geo

import (
	"testing"

	"github.com/carbonpath/server/pkg/types"
)

func TestToFeatureCollection(t *testing.T) {
	points := []types.TrackPoint{
		{Lat: 40.7128, Lon: -74.0060, Time: "20130221T201542Z"},
		{Lat: 40.7306, Lon: -73.9866, Time: "20130221T202542Z"},
	}

	fc := ToFeatureCollection(points)

	if fc.Type != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection type, got %q", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("Expected 2 features, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	if f.Geometry.Type != "Point" {
		t.Errorf("Expected Point geometry, got %q", f.Geometry.Type)
	}
	// GeoJSON coordinate order is [lon, lat]
	if f.Geometry.Coordinates[0] != -74.0060 || f.Geometry.Coordinates[1] != 40.7128 {
		t.Errorf("Coordinates in wrong order: %v", f.Geometry.Coordinates)
	}
	if f.Properties.Latitude != 40.7128 || f.Properties.Longitude != -74.0060 {
		t.Errorf("Properties mismatch: %+v", f.Properties)
	}
	if f.Properties.Time != "20130221T201542Z" {
		t.Errorf("Time not carried through: %q", f.Properties.Time)
	}
}

func TestToFeatureCollection_EmptyTrack(t *testing.T) {
	fc := ToFeatureCollection(nil)
	if fc.Type != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection type, got %q", fc.Type)
	}
	if len(fc.Features) != 0 {
		t.Errorf("Expected no features, got %d", len(fc.Features))
	}
	if fc.Features == nil {
		t.Error("Features should be an empty slice, not nil, so it serializes as []")
	}
}
