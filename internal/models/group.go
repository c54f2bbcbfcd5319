package models

import "github.com/mmynk/resultgroups/internal/dimensions"

// GroupRecord aggregates an ordered list of member results under a
// partition key.
type GroupRecord struct {
	// ID is the unique identifier for the group (UUID format).
	// Assigned by the repository on every save.
	ID string `json:"id"`

	// OwnerConfigID identifies the configuration that owns the group.
	// Values <= 0 mean absent.
	OwnerConfigID int64 `json:"ownerConfigId"`

	// Dimensions is the caller-supplied dimension mapping.
	Dimensions dimensions.Map `json:"dimensions"`

	// Signature is the canonical form of Dimensions, set on save.
	Signature string `json:"signature"`

	// Members is the ordered list of member snapshots. Order is preserved
	// across save and load.
	Members []MemberResult `json:"members"`

	// StartTime is the minimum member StartTime, nil if there are no members.
	StartTime *int64 `json:"startTime,omitempty"`

	// EndTime is the maximum member EndTime, nil if there are no members.
	EndTime *int64 `json:"endTime,omitempty"`

	// CreatedSequence orders saves; it is strictly increasing.
	CreatedSequence int64 `json:"createdSequence"`

	// CreatedAt is the Unix timestamp of the save.
	CreatedAt int64 `json:"createdAt"`
}

// MemberIDs returns the member IDs in order.
func (g *GroupRecord) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// Clone returns a deep copy of g.
func (g *GroupRecord) Clone() *GroupRecord {
	if g == nil {
		return nil
	}
	c := *g
	if g.Dimensions != nil {
		c.Dimensions = make(dimensions.Map, len(g.Dimensions))
		for k, v := range g.Dimensions {
			c.Dimensions[k] = v
		}
	}
	if g.Members != nil {
		c.Members = make([]MemberResult, len(g.Members))
		copy(c.Members, g.Members)
	}
	c.StartTime = copyTime(g.StartTime)
	c.EndTime = copyTime(g.EndTime)
	return &c
}

// DeriveBounds computes a group's time bounds from its members: the minimum
// StartTime and the maximum EndTime. Both are nil for an empty list.
func DeriveBounds(members []MemberResult) (start, end *int64) {
	if len(members) == 0 {
		return nil, nil
	}
	lo, hi := members[0].StartTime, members[0].EndTime
	for _, m := range members[1:] {
		if m.StartTime < lo {
			lo = m.StartTime
		}
		if m.EndTime > hi {
			hi = m.EndTime
		}
	}
	return &lo, &hi
}

func copyTime(t *int64) *int64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
