// Package pipeline coordinates the per-date extract, classify, estimate and
// persist stages for one tracked user.
package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	shared "github.com/carbonpath/server/pkg"
)

// ActiveDateRange returns every candidate date from joinDate through
// yesterday inclusive, most recent first. "Today" is never a candidate: it
// may still be accumulating data on the tracking service.
func ActiveDateRange(joinDate, today civil.Date) []civil.Date {
	yesterday := today.AddDays(-1)
	if yesterday.Before(joinDate) {
		return nil
	}

	dates := make([]civil.Date, 0, yesterday.DaysSince(joinDate)+1)
	for d := yesterday; !d.Before(joinDate); d = d.AddDays(-1) {
		dates = append(dates, d)
	}
	return dates
}

// MissingDates filters candidates down to the dates in neither resolved set.
// Order is preserved from candidates.
func MissingDates(candidates []civil.Date, existing, noTransport []string) []civil.Date {
	resolved := make(map[string]bool, len(existing)+len(noTransport))
	for _, d := range existing {
		resolved[d] = true
	}
	for _, d := range noTransport {
		resolved[d] = true
	}

	var missing []civil.Date
	for _, d := range candidates {
		if !resolved[d.String()] {
			missing = append(missing, d)
		}
	}
	return missing
}

// GapResolver computes the set of calendar dates still requiring processing
// for a user: the candidate range minus dates with persisted transports and
// dates with a no-transport marker.
type GapResolver struct {
	db shared.Database
}

func NewGapResolver(db shared.Database) *GapResolver {
	return &GapResolver{db: db}
}

// Resolve returns the unprocessed dates, most recent first. An empty
// persisted state legitimately yields the full candidate range on a user's
// first run.
func (r *GapResolver) Resolve(ctx context.Context, userID string, joinDate, today civil.Date) ([]civil.Date, error) {
	existing, err := r.db.TransportDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query transport dates: %w", err)
	}
	noTransport, err := r.db.NoTransportDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query no-transport dates: %w", err)
	}

	return MissingDates(ActiveDateRange(joinDate, today), existing, noTransport), nil
}
