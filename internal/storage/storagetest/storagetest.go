// Package storagetest holds the behavioural tests every storage.Store
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/resultgroups/internal/dimensions"
	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
)

// Factory returns a fresh, empty store. It should register its own cleanup.
type Factory func(t *testing.T) storage.Store

// Run exercises store behaviour against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("member round trip", func(t *testing.T) { testMemberRoundTrip(t, newStore(t)) })
	t.Run("member validation", func(t *testing.T) { testMemberValidation(t, newStore(t)) })
	t.Run("failed member save", func(t *testing.T) { testFailedMemberSaveLeavesNoFields(t, newStore(t)) })
	t.Run("group round trip", func(t *testing.T) { testGroupRoundTrip(t, newStore(t)) })
	t.Run("empty group", func(t *testing.T) { testEmptyGroup(t, newStore(t)) })
	t.Run("group validation", func(t *testing.T) { testGroupValidation(t, newStore(t)) })
	t.Run("dangling member", func(t *testing.T) { testDanglingMember(t, newStore(t)) })
	t.Run("partition non-uniqueness", func(t *testing.T) { testPartitionNonUnique(t, newStore(t)) })
	t.Run("most recent in window", func(t *testing.T) { testMostRecentInWindow(t, newStore(t)) })
	t.Run("recency over end time", func(t *testing.T) { testRecencyOverEndTime(t, newStore(t)) })
	t.Run("window exclusion", func(t *testing.T) { testWindowExclusion(t, newStore(t)) })
	t.Run("query validation", func(t *testing.T) { testQueryValidation(t, newStore(t)) })
	t.Run("list partition", func(t *testing.T) { testListPartition(t, newStore(t)) })
	t.Run("concurrent saves", func(t *testing.T) { testConcurrentSaves(t, newStore(t)) })
}

// SaveMembers stores one member per end time and returns them in order.
func SaveMembers(t *testing.T, s storage.MemberStore, endTimes ...int64) []models.MemberResult {
	t.Helper()
	members := make([]models.MemberResult, len(endTimes))
	for i, end := range endTimes {
		m := &models.MemberResult{EndTime: end}
		require.NoError(t, s.SaveMember(context.Background(), m))
		members[i] = *m
	}
	return members
}

func testMemberRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	m := &models.MemberResult{StartTime: 5, EndTime: 10}
	require.NoError(t, s.SaveMember(ctx, m))
	assert.NotEmpty(t, m.ID)
	assert.NotZero(t, m.CreatedAt)

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = s.GetMember(ctx, "nonexistent-id")
	assert.True(t, errors.IsNotFound(err))

	explicit := &models.MemberResult{ID: "m-explicit", EndTime: 3}
	require.NoError(t, s.SaveMember(ctx, explicit))
	assert.Equal(t, "m-explicit", explicit.ID)

	dup := &models.MemberResult{ID: "m-explicit", EndTime: 4}
	assert.Error(t, s.SaveMember(ctx, dup))
	assert.Zero(t, dup.CreatedAt, "a failed save leaves the member untouched")
}

func testFailedMemberSaveLeavesNoFields(t *testing.T, s storage.Store) {
	m := &models.MemberResult{StartTime: 10, EndTime: 5}
	require.Error(t, s.SaveMember(context.Background(), m))
	assert.Empty(t, m.ID)
	assert.Zero(t, m.CreatedAt)
}

func testMemberValidation(t *testing.T, s storage.Store) {
	err := s.SaveMember(context.Background(), &models.MemberResult{StartTime: 10, EndTime: 5})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func testGroupRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	set := SaveMembers(t, s, 10, 15)
	input := []models.MemberResult{set[1], set[0]}

	group := &models.GroupRecord{
		OwnerConfigID: 1,
		Dimensions:    dimensions.Map{"D1": "K1"},
		Members:       input,
	}
	require.NoError(t, s.SaveGroup(ctx, group))

	require.NotEmpty(t, group.ID)
	require.NotNil(t, group.EndTime)
	assert.Equal(t, int64(15), *group.EndTime)
	assert.Equal(t, int64(0), *group.StartTime)
	assert.Equal(t, int64(1), group.OwnerConfigID)
	assert.Equal(t, dimensions.Map{"D1": "K1"}, group.Dimensions)
	assert.Equal(t, "{D1=K1}", group.Signature)
	assert.Positive(t, group.CreatedSequence)
	assert.Equal(t, []string{set[1].ID, set[0].ID}, group.MemberIDs())

	got, err := s.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group, got)
	assert.Equal(t, []string{set[1].ID, set[0].ID}, got.MemberIDs())

	sig, err := dimensions.Canonicalize(dimensions.Map{"D1": "K1"})
	require.NoError(t, err)
	assert.Equal(t, sig, got.Signature)

	_, err = s.GetGroup(ctx, "nonexistent-id")
	assert.True(t, errors.IsNotFound(err))
}

func testEmptyGroup(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dimensions.Map{"D1": "K1"}}
	require.NoError(t, s.SaveGroup(ctx, group))
	assert.NotEmpty(t, group.ID)
	assert.Nil(t, group.EndTime)
	assert.Nil(t, group.StartTime)

	got, err := s.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EndTime)
	assert.Empty(t, got.Members)

	_, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", -1<<62, 1<<62)
	assert.True(t, errors.IsNotFound(err))
}

func testGroupValidation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	members := SaveMembers(t, s, 10)

	tests := []struct {
		name  string
		group *models.GroupRecord
		want  error
	}{
		{"nil group", nil, errors.ErrMissingField},
		{"missing owner", &models.GroupRecord{Members: members}, errors.ErrMissingField},
		{"negative owner", &models.GroupRecord{OwnerConfigID: -1}, errors.ErrMissingField},
		{"member without id", &models.GroupRecord{OwnerConfigID: 1, Members: []models.MemberResult{{EndTime: 3}}}, errors.ErrMissingField},
		{"empty dimension name", &models.GroupRecord{OwnerConfigID: 1, Dimensions: dimensions.Map{"": "x"}}, errors.ErrInvalidDimensionKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SaveGroup(ctx, tt.group)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
			assert.True(t, errors.IsValidation(err))
			if tt.group != nil {
				assert.Empty(t, tt.group.ID)
				assert.Nil(t, tt.group.EndTime)
			}
		})
	}

	groups, err := s.ListPartition(ctx, 1, "{}")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func testDanglingMember(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := &models.GroupRecord{
		OwnerConfigID: 1,
		Members:       []models.MemberResult{{ID: "does-not-exist", EndTime: 10}},
	}
	require.Error(t, s.SaveGroup(ctx, group))
	assert.Empty(t, group.ID)

	groups, err := s.ListPartition(ctx, 1, "{}")
	require.NoError(t, err)
	assert.Empty(t, groups, "a failed save must leave nothing behind")
}

func testPartitionNonUnique(t *testing.T, s storage.Store) {
	ctx := context.Background()
	members := SaveMembers(t, s, 10)

	a := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dimensions.Map{"D1": "K1"}, Members: members}
	b := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dimensions.Map{"D1": "K1"}, Members: members}
	require.NoError(t, s.SaveGroup(ctx, a))
	require.NoError(t, s.SaveGroup(ctx, b))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Greater(t, b.CreatedSequence, a.CreatedSequence)

	firstID := a.ID
	require.NoError(t, s.SaveGroup(ctx, a))
	assert.NotEqual(t, firstID, a.ID, "a re-save produces a new group")
}

func testMostRecentInWindow(t *testing.T, s storage.Store) {
	ctx := context.Background()
	dims := dimensions.Map{"D1": "K1"}

	set1 := SaveMembers(t, s, 10, 15)
	groupA := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dims, Members: []models.MemberResult{set1[1], set1[0]}}
	require.NoError(t, s.SaveGroup(ctx, groupA))
	assert.Equal(t, int64(15), *groupA.EndTime)

	set2 := SaveMembers(t, s, 20, 25)
	groupB := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dims, Members: []models.MemberResult{set2[1], set2[0]}}
	require.NoError(t, s.SaveGroup(ctx, groupB))

	byID, err := s.GetGroup(ctx, groupB.ID)
	require.NoError(t, err)

	recent, err := s.FindMostRecentInTimeWindow(ctx, 1, dims.String(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, recent.ID)
	assert.Equal(t, []string{set2[1].ID, set2[0].ID}, recent.MemberIDs())
	assert.Equal(t, groupB.Members, recent.Members)

	recent, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, groupB.ID, recent.ID)

	// Only A ends inside [0, 20].
	recent, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, groupA.ID, recent.ID)
}

func testRecencyOverEndTime(t *testing.T, s storage.Store) {
	ctx := context.Background()
	dims := dimensions.Map{"D1": "K1", "D2": "K2"}

	late := SaveMembers(t, s, 20, 25)
	early := SaveMembers(t, s, 10, 15)

	older := &models.GroupRecord{OwnerConfigID: 7, Dimensions: dims, Members: late}
	require.NoError(t, s.SaveGroup(ctx, older))
	newer := &models.GroupRecord{OwnerConfigID: 7, Dimensions: dims, Members: early}
	require.NoError(t, s.SaveGroup(ctx, newer))

	// Key order in the query signature doesn't matter.
	recent, err := s.FindMostRecentInTimeWindow(ctx, 7, "{D2=K2,D1=K1}", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, recent.ID)
	assert.Equal(t, int64(15), *recent.EndTime)
}

func testWindowExclusion(t *testing.T, s storage.Store) {
	ctx := context.Background()
	dims := dimensions.Map{"D1": "K1"}

	inside := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dims, Members: SaveMembers(t, s, 30)}
	require.NoError(t, s.SaveGroup(ctx, inside))
	outside := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dims, Members: SaveMembers(t, s, 100)}
	require.NoError(t, s.SaveGroup(ctx, outside))
	other := &models.GroupRecord{OwnerConfigID: 2, Dimensions: dims, Members: SaveMembers(t, s, 40)}
	require.NoError(t, s.SaveGroup(ctx, other))

	recent, err := s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", 0, 50)
	require.NoError(t, err)
	assert.Equal(t, inside.ID, recent.ID)

	recent, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", 30, 30)
	require.NoError(t, err)
	assert.Equal(t, inside.ID, recent.ID, "window bounds are inclusive")

	_, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", 31, 99)
	assert.True(t, errors.IsNotFound(err))

	_, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K2}", 0, 200)
	assert.True(t, errors.IsNotFound(err))

	_, err = s.FindMostRecentInTimeWindow(ctx, 1, "{D1=K1}", 50, 0)
	assert.True(t, errors.IsNotFound(err))
}

func testQueryValidation(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.FindMostRecentInTimeWindow(ctx, 0, "{D1=K1}", 0, 50)
	assert.True(t, errors.Is(err, errors.ErrMissingField))

	_, err = s.FindMostRecentInTimeWindow(ctx, 1, "D1=K1", 0, 50)
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))

	_, err = s.ListPartition(ctx, 1, "{=K1}")
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))
}

func testListPartition(t *testing.T, s storage.Store) {
	ctx := context.Background()
	dims := dimensions.Map{"D1": "K1"}

	var ids []string
	for i := 0; i < 3; i++ {
		g := &models.GroupRecord{OwnerConfigID: 1, Dimensions: dims, Members: SaveMembers(t, s, int64(i*10), int64(i*10+5))}
		require.NoError(t, s.SaveGroup(ctx, g))
		ids = append(ids, g.ID)
	}
	require.NoError(t, s.SaveGroup(ctx, &models.GroupRecord{OwnerConfigID: 1, Dimensions: dimensions.Map{"D1": "K2"}}))

	groups, err := s.ListPartition(ctx, 1, "{D1=K1}")
	require.NoError(t, err)
	require.Len(t, groups, 3)
	for i, g := range groups {
		assert.Equal(t, ids[len(ids)-1-i], g.ID)
		assert.Len(t, g.Members, 2)
	}
}

func testConcurrentSaves(t *testing.T, s storage.Store) {
	ctx := context.Background()
	members := SaveMembers(t, s, 10, 20)

	const workers = 8
	var wg sync.WaitGroup
	groups := make([]*models.GroupRecord, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := &models.GroupRecord{
				OwnerConfigID: 3,
				Dimensions:    dimensions.Map{"worker": fmt.Sprint(i % 2)},
				Members:       members,
			}
			errs[i] = s.SaveGroup(ctx, g)
			groups[i] = g
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	ids := map[string]bool{}
	for i, g := range groups {
		require.NoError(t, errs[i])
		assert.False(t, seen[g.CreatedSequence], "sequence %d assigned twice", g.CreatedSequence)
		seen[g.CreatedSequence] = true
		ids[g.ID] = true

		got, err := s.GetGroup(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{members[0].ID, members[1].ID}, got.MemberIDs())
	}
	assert.Len(t, ids, workers)
}
