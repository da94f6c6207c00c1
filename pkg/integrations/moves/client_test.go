package moves

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResourcePath(t *testing.T) {
	since := time.Date(2013, 2, 22, 6, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		resource string
		opts     FetchOptions
		want     string
	}{
		{"plain summary", "summary", FetchOptions{}, "/user/summary/daily/2013-02-21?"},
		{"storyline with track points", "storyline", FetchOptions{TrackPoints: true}, "/user/storyline/daily/2013-02-21?&trackPoints=true"},
		{"update since", "storyline", FetchOptions{TrackPoints: true, UpdateSince: &since}, "/user/storyline/daily/2013-02-21?&trackPoints=true&updateSince>T20130222T063000Z"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resourcePath(tc.resource, "2013-02-21", tc.opts); got != tc.want {
				t.Errorf("resourcePath = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFetchDaily_InvalidResourceBeforeNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Tokens: StaticTokenSource("tok")})
	_, err := c.FetchDaily(context.Background(), "profile", "2013-02-21", FetchOptions{})

	var invalid *InvalidResourceError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidResourceError, got %v", err)
	}
	if invalid.Resource != "profile" {
		t.Errorf("Expected resource 'profile' in error, got %q", invalid.Resource)
	}
	if called {
		t.Error("Invalid resource must be rejected before any network call")
	}
}

func TestFetchDaily_BearerAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Tokens: StaticTokenSource("secret-token")})
	if _, err := c.FetchDaily(context.Background(), "summary", "2013-02-21", FetchOptions{}); err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
}

func TestFetchDaily_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "expired_access_token"}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Tokens: StaticTokenSource("tok")})
	_, err := c.FetchDaily(context.Background(), "summary", "2013-02-21", FetchOptions{})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if fetchErr.Resource != "summary" || fetchErr.Date != "2013-02-21" {
		t.Errorf("FetchError missing context: %+v", fetchErr)
	}
	if !strings.Contains(err.Error(), "expired_access_token") {
		t.Errorf("Expected response body in error, got: %v", err)
	}
}

func TestFetchStoryline(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("trackPoints") != "true" {
			t.Errorf("Expected trackPoints=true, got query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[
			{
				"date": "20130221",
				"segments": [
					{
						"type": "move",
						"activities": [
							{
								"activity": "transport",
								"startTime": "20130221T081500Z",
								"endTime": "20130221T084500Z",
								"duration": 1800,
								"distance": 4500,
								"trackPoints": [{"lat": 40.7128, "lon": -74.006}]
							}
						]
					}
				]
			}
		]`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Tokens: StaticTokenSource("tok")})
	storylines, err := c.FetchStoryline(context.Background(), "2013-02-21", nil)
	if err != nil {
		t.Fatalf("FetchStoryline failed: %v", err)
	}

	if gotPath != "/user/storyline/daily/2013-02-21" {
		t.Errorf("Wrong path: %s", gotPath)
	}
	if len(storylines) != 1 {
		t.Fatalf("Expected 1 storyline, got %d", len(storylines))
	}
	acts := storylines[0].Segments[0].Activities
	if len(acts) != 1 || acts[0].Activity != "transport" || acts[0].Distance != 4500 {
		t.Errorf("Storyline not decoded correctly: %+v", storylines[0])
	}
	if len(acts[0].TrackPoints) != 1 || acts[0].TrackPoints[0].Lat != 40.7128 {
		t.Errorf("Track points not decoded: %+v", acts[0].TrackPoints)
	}
}

func TestFetchStoryline_TokenSourceFailure(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:0", Tokens: failingTokenSource{}})
	_, err := c.FetchStoryline(context.Background(), "2013-02-21", nil)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
}

type failingTokenSource struct{}

func (failingTokenSource) AccessToken(ctx context.Context) (string, error) {
	return "", errors.New("refresh failed")
}
