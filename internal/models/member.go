package models

// MemberResult is an independently persisted, time-stamped result.
type MemberResult struct {
	// ID is the unique identifier for the result (UUID format).
	// Assigned by the member store when empty.
	ID string `json:"id"`

	// StartTime and EndTime bound the result, in epoch milliseconds.
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`

	// CreatedAt is the Unix timestamp when the result was stored.
	CreatedAt int64 `json:"createdAt,omitempty"`
}

// Snapshot returns the fields a group keeps for m.
func (m MemberResult) Snapshot() MemberResult {
	return MemberResult{ID: m.ID, StartTime: m.StartTime, EndTime: m.EndTime}
}
