package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/resultgroups/internal/dimensions"
	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
	"github.com/mmynk/resultgroups/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestReturnedGroupsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	members := storagetest.SaveMembers(t, s, 10, 15)
	group := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dimensions.Map{"D1": "K1"}, Members: members}
	require.NoError(t, s.SaveGroup(ctx, group))

	group.Members[0].EndTime = 999
	group.Dimensions["D1"] = "changed"

	got, err := s.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Members[0].EndTime)
	assert.Equal(t, "K1", got.Dimensions["D1"])

	got.Members[1].EndTime = 999
	again, err := s.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), again.Members[1].EndTime)
}

func TestDanglingReferenceKind(t *testing.T) {
	s := New()
	err := s.SaveGroup(context.Background(), &models.GroupRecord{
		OwnerConfigID: 1,
		Members:       []models.MemberResult{{ID: "missing"}},
	})
	assert.True(t, errors.Is(err, errors.ErrInvalidReference))
}
