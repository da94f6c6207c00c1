// Package extract flattens daily storyline payloads into transport-candidate
// activities. Each stage is a pure filter/flatten over a lazy, single-pass
// sequence; absent optional fields are treated as empty, never as errors.
package extract

import (
	"iter"

	"github.com/carbonpath/server/pkg/types"
)

// transportTypes is the sole gate on which raw activities become transport
// candidates. Walking, running, cycling and the rest are discarded: mode
// classification and emissions apply only to motorized or transit movement.
var transportTypes = map[string]bool{
	"transport": true,
	"airplane":  true,
}

// Segments yields the segments of each storyline. Storylines without a
// segments field carry none and are skipped.
func Segments(storylines []types.Storyline) iter.Seq[types.Segment] {
	return func(yield func(types.Segment) bool) {
		for _, s := range storylines {
			for _, seg := range s.Segments {
				if !yield(seg) {
					return
				}
			}
		}
	}
}

// Activities flattens segments that carry activities. Segments without an
// activities field are skipped, not treated as an error.
func Activities(segments iter.Seq[types.Segment]) iter.Seq[types.Activity] {
	return func(yield func(types.Activity) bool) {
		for seg := range segments {
			for _, a := range seg.Activities {
				if !yield(a) {
					return
				}
			}
		}
	}
}

// Transports filters activities down to transport candidates.
func Transports(activities iter.Seq[types.Activity]) iter.Seq[types.Activity] {
	return func(yield func(types.Activity) bool) {
		for a := range activities {
			if !transportTypes[a.Activity] {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

// TransportsFromStorylines materializes the full chain for one date. A date's
// data volume is small and bounded, and the orchestrator needs multiple
// downstream consumers over the same activities.
func TransportsFromStorylines(storylines []types.Storyline) []types.Activity {
	var out []types.Activity
	for a := range Transports(Activities(Segments(storylines))) {
		out = append(out, a)
	}
	return out
}
