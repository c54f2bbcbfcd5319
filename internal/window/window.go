// Package window selects the most recent group of a partition whose derived
// end time falls inside a time window.
package window

import "github.com/mmynk/resultgroups/internal/models"

// Window is an inclusive [Start, End] time range.
type Window struct {
	Start int64
	End   int64
}

// Empty reports whether no time can fall inside w.
func (w Window) Empty() bool {
	return w.Start > w.End
}

// Contains reports whether t lies in w. A nil time is never contained.
func (w Window) Contains(t *int64) bool {
	return t != nil && *t >= w.Start && *t <= w.End
}

// Matches reports whether g belongs to the partition and its end time lies
// in w.
func (w Window) Matches(g *models.GroupRecord, ownerConfigID int64, signature string) bool {
	return g.OwnerConfigID == ownerConfigID &&
		g.Signature == signature &&
		w.Contains(g.EndTime)
}

// MostRecent returns the matching candidate with the greatest
// CreatedSequence, or nil. Groups are ranked by save order, not by end
// time: a later save for a partition supersedes earlier ones.
func MostRecent(candidates []*models.GroupRecord, ownerConfigID int64, signature string, w Window) *models.GroupRecord {
	var best *models.GroupRecord
	for _, g := range candidates {
		if !w.Matches(g, ownerConfigID, signature) {
			continue
		}
		if best == nil || g.CreatedSequence > best.CreatedSequence {
			best = g
		}
	}
	return best
}
