package storage

import (
	"fmt"

	"github.com/mmynk/resultgroups/internal/dimensions"
	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/models"
)

// ValidateMember checks a member result before it is written.
func ValidateMember(m *models.MemberResult) error {
	if m == nil {
		return errors.NewMissingField("member")
	}
	if m.StartTime > m.EndTime {
		return errors.NewInvalidValue("endTime", m.EndTime, fmt.Sprintf("before startTime %d", m.StartTime))
	}
	return nil
}

// PrepareGroup validates g and returns its signature. Every backend calls it
// before opening a write, so rejected groups never touch storage.
func PrepareGroup(g *models.GroupRecord) (string, error) {
	if g == nil {
		return "", errors.NewMissingField("group")
	}
	if g.OwnerConfigID <= 0 {
		return "", errors.NewMissingField("ownerConfigId")
	}
	for i, m := range g.Members {
		if m.ID == "" {
			return "", errors.NewMissingField(fmt.Sprintf("members[%d].id", i))
		}
	}
	return dimensions.Canonicalize(g.Dimensions)
}

// PrepareQuery validates the partition key of a window or partition query
// and returns the normalized signature.
func PrepareQuery(ownerConfigID int64, signature string) (string, error) {
	if ownerConfigID <= 0 {
		return "", errors.NewMissingField("ownerConfigId")
	}
	return dimensions.Normalize(signature)
}
