package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseActivityTime(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"compact UTC", "20130221T201542Z", time.Date(2013, 2, 21, 20, 15, 42, 0, time.UTC)},
		{"compact with offset", "20130221T201542+0200", time.Date(2013, 2, 21, 20, 15, 42, 0, time.FixedZone("", 2*3600))},
		{"rfc3339", "2013-02-21T20:15:42Z", time.Date(2013, 2, 21, 20, 15, 42, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseActivityTime(tc.input)
			if err != nil {
				t.Fatalf("ParseActivityTime(%q) failed: %v", tc.input, err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("ParseActivityTime(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}

	if _, err := ParseActivityTime("21 Feb 2013"); err == nil {
		t.Error("Expected error for unrecognized timestamp")
	}
}

func TestParseServiceDate(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"20130221", "2013-02-21"},
		{"2013-02-21", "2013-02-21"},
	}
	for _, tc := range cases {
		got, err := ParseServiceDate(tc.input)
		if err != nil {
			t.Fatalf("ParseServiceDate(%q) failed: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseServiceDate(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	if _, err := ParseServiceDate("02/21/2013"); err == nil {
		t.Error("Expected error for unrecognized date")
	}
}

func TestStorylineDecode_AbsentFields(t *testing.T) {
	// Days without movement omit segments entirely; move segments may omit
	// trackPoints when fetched without them.
	payload := `[
		{"date": "20130220"},
		{
			"date": "20130221",
			"segments": [
				{"type": "place"},
				{
					"type": "move",
					"activities": [
						{"activity": "transport", "startTime": "20130221T081500Z", "endTime": "20130221T084500Z", "distance": 4500}
					]
				}
			]
		}
	]`

	var storylines []Storyline
	if err := json.Unmarshal([]byte(payload), &storylines); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if storylines[0].Segments != nil {
		t.Error("Absent segments should decode to nil")
	}
	act := storylines[1].Segments[1].Activities[0]
	if act.TrackPoints != nil {
		t.Error("Absent trackPoints should decode to nil")
	}
	if act.Distance != 4500 {
		t.Errorf("Distance = %v", act.Distance)
	}
}
