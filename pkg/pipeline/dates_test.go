package pipeline

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/carbonpath/server/pkg/testing/mocks"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestActiveDateRange(t *testing.T) {
	dates := ActiveDateRange(date("2013-02-18"), date("2013-02-22"))

	want := []string{"2013-02-21", "2013-02-20", "2013-02-19", "2013-02-18"}
	if len(dates) != len(want) {
		t.Fatalf("Expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
	for i, w := range want {
		if dates[i].String() != w {
			t.Errorf("dates[%d] = %s, want %s", i, dates[i], w)
		}
	}
}

func TestActiveDateRange_ExcludesToday(t *testing.T) {
	dates := ActiveDateRange(date("2013-02-18"), date("2013-02-22"))
	for _, d := range dates {
		if d.String() == "2013-02-22" {
			t.Error("Today must never be a candidate")
		}
	}
}

func TestActiveDateRange_JoinedToday(t *testing.T) {
	if dates := ActiveDateRange(date("2013-02-22"), date("2013-02-22")); len(dates) != 0 {
		t.Errorf("Expected no candidates when user joined today, got %v", dates)
	}
}

func TestActiveDateRange_JoinedYesterday(t *testing.T) {
	dates := ActiveDateRange(date("2013-02-21"), date("2013-02-22"))
	if len(dates) != 1 || dates[0].String() != "2013-02-21" {
		t.Errorf("Expected exactly the join date, got %v", dates)
	}
}

func TestMissingDates(t *testing.T) {
	candidates := ActiveDateRange(date("2013-02-18"), date("2013-02-22"))

	missing := MissingDates(candidates,
		[]string{"2013-02-20"},
		[]string{"2013-02-18"})

	want := []string{"2013-02-21", "2013-02-19"}
	if len(missing) != len(want) {
		t.Fatalf("Expected %v, got %v", want, missing)
	}
	for i, w := range want {
		if missing[i].String() != w {
			t.Errorf("missing[%d] = %s, want %s", i, missing[i], w)
		}
	}
}

func TestMissingDates_AllResolved(t *testing.T) {
	candidates := ActiveDateRange(date("2013-02-20"), date("2013-02-22"))
	missing := MissingDates(candidates,
		[]string{"2013-02-21"},
		[]string{"2013-02-20"})
	if len(missing) != 0 {
		t.Errorf("Expected no missing dates, got %v", missing)
	}
}

func TestGapResolver_FirstRun(t *testing.T) {
	db := &mocks.MockDatabase{}

	dates, err := NewGapResolver(db).Resolve(context.Background(), "user-1", date("2013-02-19"), date("2013-02-22"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Nothing persisted yet: the full candidate range, most recent first.
	if len(dates) != 3 || dates[0].String() != "2013-02-21" || dates[2].String() != "2013-02-19" {
		t.Errorf("Unexpected first-run dates: %v", dates)
	}
}

func TestGapResolver_MergesBothResolvedSets(t *testing.T) {
	db := &mocks.MockDatabase{
		TransportDatesFunc: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"2013-02-21"}, nil
		},
		NoTransportDatesFunc: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"2013-02-19"}, nil
		},
	}

	dates, err := NewGapResolver(db).Resolve(context.Background(), "user-1", date("2013-02-19"), date("2013-02-22"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(dates) != 1 || dates[0].String() != "2013-02-20" {
		t.Errorf("Expected only 2013-02-20, got %v", dates)
	}
}
