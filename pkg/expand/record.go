package expand

import (
	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/position"
)

// Record describes one substitution.
type Record struct {
	ID    int
	Kind  macro.Kind
	Macro string
	// Depth is 1 for a call written by the author and grows by one for each
	// expansion the call came out of.
	Depth int
	// OriginalRange is the call site in the author's file.
	OriginalRange position.Range
	// GeneratedRange is the expansion in the printed code.
	GeneratedRange position.Range
}

// RecordAt finds the innermost expansion covering p, a place in the printed
// code.
func RecordAt(records []Record, p position.Place) (Record, bool) {
	var best Record
	found := false
	for _, r := range records {
		if !r.GeneratedRange.Contains(p) {
			continue
		}
		if !found || r.Depth > best.Depth || r.Depth == best.Depth && inside(r.GeneratedRange, best.GeneratedRange) {
			best, found = r, true
		}
	}
	return best, found
}

func inside(a, b position.Range) bool {
	return !a.Start.Before(b.Start) && !b.End.Before(a.End)
}
