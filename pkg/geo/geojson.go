package geo

import "github.com/carbonpath/server/pkg/types"

func makeFeature(tp types.TrackPoint) types.Feature {
	return types.Feature{
		Type: "Feature",
		Properties: types.FeatureProperties{
			Latitude:  tp.Lat,
			Longitude: tp.Lon,
			Time:      tp.Time,
			ID:        "transport",
		},
		Geometry: types.Geometry{
			Type:        "Point",
			Coordinates: []float64{tp.Lon, tp.Lat},
		},
	}
}

// ToFeatureCollection maps a trip's track points to a GeoJSON
// FeatureCollection. An empty track yields an empty feature list, not an
// error: geometry rendering tolerates empty input even though feature
// engineering does not.
func ToFeatureCollection(trackPoints []types.TrackPoint) types.FeatureCollection {
	features := make([]types.Feature, 0, len(trackPoints))
	for _, tp := range trackPoints {
		features = append(features, makeFeature(tp))
	}
	return types.FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
