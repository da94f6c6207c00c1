package transportsapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonpath/server/pkg/testing/mocks"
	"github.com/carbonpath/server/pkg/types"
)

func testRecord(id, date string) *types.TransportRecord {
	return &types.TransportRecord{
		ID:        id,
		UserID:    "user-1",
		Date:      date,
		StartTime: time.Date(2013, 2, 21, 8, 15, 0, 0, time.UTC),
		EndTime:   time.Date(2013, 2, 21, 8, 45, 0, 0, time.UTC),
		Distance:  4500,
		Mode:      "subway",
		CarbonKg:  0.37,
		GeoJSON: &types.FeatureCollection{
			Type: "FeatureCollection",
			Features: []types.Feature{{
				Type:     "Feature",
				Geometry: types.Geometry{Type: "Point", Coordinates: []float64{-74.0060, 40.7128}},
			}},
		},
	}
}

func doRequest(t *testing.T, db *mocks.MockDatabase, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(db, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, &mocks.MockDatabase{}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListTransports(t *testing.T) {
	db := &mocks.MockDatabase{
		ListTransportsByDateFunc: func(ctx context.Context, userID, date string) ([]*types.TransportRecord, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, "2013-02-21", date)
			return []*types.TransportRecord{testRecord("2013-02-21_081500", "2013-02-21")}, nil
		},
	}

	rec := doRequest(t, db, http.MethodGet, "/users/user-1/transports/?date=2013-02-21")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UserID     string                   `json:"user_id"`
		Date       string                   `json:"date"`
		Count      int                      `json:"count"`
		Transports []*types.TransportRecord `json:"transports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body.UserID)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Transports, 1)
	assert.Equal(t, "subway", body.Transports[0].Mode)
	assert.Equal(t, 0.37, body.Transports[0].CarbonKg)
}

func TestListTransports_EmptyDay(t *testing.T) {
	rec := doRequest(t, &mocks.MockDatabase{}, http.MethodGet, "/users/user-1/transports/?date=2013-02-21")
	require.Equal(t, http.StatusOK, rec.Code)
	// Must serialize the empty day as [], not null.
	assert.Contains(t, rec.Body.String(), `"transports":[]`)
}

func TestListTransports_BadRequest(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"missing date", "/users/user-1/transports/"},
		{"malformed date", "/users/user-1/transports/?date=21-02-2013"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, &mocks.MockDatabase{}, http.MethodGet, tc.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListTransports_StoreFailure(t *testing.T) {
	db := &mocks.MockDatabase{
		ListTransportsByDateFunc: func(ctx context.Context, userID, date string) ([]*types.TransportRecord, error) {
			return nil, errors.New("store unavailable")
		},
	}
	rec := doRequest(t, db, http.MethodGet, "/users/user-1/transports/?date=2013-02-21")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTransportGeoJSON(t *testing.T) {
	db := &mocks.MockDatabase{
		GetTransportFunc: func(ctx context.Context, userID, id string) (*types.TransportRecord, error) {
			assert.Equal(t, "2013-02-21_081500", id)
			return testRecord(id, "2013-02-21"), nil
		},
	}

	rec := doRequest(t, db, http.MethodGet, "/users/user-1/transports/2013-02-21_081500/geojson")
	require.Equal(t, http.StatusOK, rec.Code)

	var fc types.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{-74.0060, 40.7128}, fc.Features[0].Geometry.Coordinates)
}

func TestTransportGeoJSON_NotFound(t *testing.T) {
	rec := doRequest(t, &mocks.MockDatabase{}, http.MethodGet, "/users/user-1/transports/nope/geojson")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
