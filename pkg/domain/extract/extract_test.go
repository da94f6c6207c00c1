package extract

import (
	"testing"

	"github.com/carbonpath/server/pkg/types"
)

func storylineFixture() []types.Storyline {
	return []types.Storyline{
		{
			Date: "2013-02-21",
			Segments: []types.Segment{
				{
					Type: "move",
					Activities: []types.Activity{
						{Activity: "walking", Distance: 300},
						{Activity: "transport", Distance: 4500, StartTime: "20130221T081500Z"},
					},
				},
				{Type: "place"}, // no activities field
				{
					Type: "move",
					Activities: []types.Activity{
						{Activity: "airplane", Distance: 900000, StartTime: "20130221T120000Z"},
						{Activity: "cycling", Distance: 8000},
					},
				},
			},
		},
		{Date: "2013-02-21"}, // no segments field
	}
}

func TestTransportsFromStorylines(t *testing.T) {
	got := TransportsFromStorylines(storylineFixture())

	if len(got) != 2 {
		t.Fatalf("Expected 2 transport candidates, got %d", len(got))
	}
	if got[0].Activity != "transport" || got[0].Distance != 4500 {
		t.Errorf("First candidate wrong: %+v", got[0])
	}
	if got[1].Activity != "airplane" {
		t.Errorf("Second candidate wrong: %+v", got[1])
	}
}

func TestTransportsFromStorylines_AbsentFields(t *testing.T) {
	cases := []struct {
		name       string
		storylines []types.Storyline
	}{
		{"nil input", nil},
		{"empty storyline", []types.Storyline{{Date: "2013-02-21"}}},
		{"segments without activities", []types.Storyline{
			{Date: "2013-02-21", Segments: []types.Segment{{Type: "place"}, {Type: "off"}}},
		}},
		{"activities but no transports", []types.Storyline{
			{Date: "2013-02-21", Segments: []types.Segment{
				{Type: "move", Activities: []types.Activity{{Activity: "walking"}, {Activity: "running"}}},
			}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TransportsFromStorylines(tc.storylines); len(got) != 0 {
				t.Errorf("Expected no candidates, got %d", len(got))
			}
		})
	}
}

func TestTransports_EarlyStop(t *testing.T) {
	seq := Transports(Activities(Segments(storylineFixture())))

	count := 0
	for range seq {
		count++
		break
	}
	if count != 1 {
		t.Errorf("Expected early termination after 1 element, got %d", count)
	}
}
