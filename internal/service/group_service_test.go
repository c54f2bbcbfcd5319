package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/resultgroups/internal/dimensions"
	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/metrics"
	"github.com/mmynk/resultgroups/internal/storage"
	"github.com/mmynk/resultgroups/internal/storage/cache"
	"github.com/mmynk/resultgroups/internal/storage/memory"
	"github.com/mmynk/resultgroups/internal/storage/sqlite"
)

// setupGroupService returns a service over a SQLite store in a temp dir,
// fronted by the group cache as in production.
func setupGroupService(t *testing.T) *GroupService {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cached, err := cache.New(store, 64)
	require.NoError(t, err)
	return NewGroupService(cached)
}

func recordMembers(t *testing.T, svc *GroupService, endTimes ...int64) []string {
	t.Helper()
	ids := make([]string, len(endTimes))
	for i, end := range endTimes {
		m, err := svc.RecordMember(context.Background(), 0, end)
		require.NoError(t, err)
		ids[i] = m.ID
	}
	return ids
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupGroupService(t)

	ids := recordMembers(t, svc, 10, 15)
	group, err := svc.CreateGroup(ctx, 1, dimensions.Map{"D1": "K1"}, []string{ids[1], ids[0]})
	require.NoError(t, err)

	assert.NotEmpty(t, group.ID)
	assert.Equal(t, int64(15), *group.EndTime)
	assert.Equal(t, int64(1), group.OwnerConfigID)
	assert.Equal(t, dimensions.Map{"D1": "K1"}, group.Dimensions)
	assert.Equal(t, []string{ids[1], ids[0]}, group.MemberIDs())

	got, err := svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group, got)
}

func TestCreateGroupRejectsBeforeLookup(t *testing.T) {
	ctx := context.Background()
	svc := setupGroupService(t)

	_, err := svc.CreateGroup(ctx, 0, dimensions.Map{"D1": "K1"}, []string{"whatever"})
	assert.True(t, errors.Is(err, errors.ErrMissingField))

	_, err = svc.CreateGroup(ctx, 1, dimensions.Map{"": "K1"}, []string{"whatever"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))
}

func TestCreateGroupUnknownMember(t *testing.T) {
	ctx := context.Background()
	svc := setupGroupService(t)

	ids := recordMembers(t, svc, 10)
	_, err := svc.CreateGroup(ctx, 1, dimensions.Map{"D1": "K1"}, []string{ids[0], "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidReference))

	groups, err := svc.History(ctx, 1, "{D1=K1}")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

// TestFindMostRecent follows the reference scenario: two groups for the
// same partition, the later one is returned.
func TestFindMostRecent(t *testing.T) {
	ctx := context.Background()
	svc := setupGroupService(t)
	dims := dimensions.Map{"D1": "K1"}

	set1 := recordMembers(t, svc, 10, 15)
	groupA, err := svc.CreateGroup(ctx, 1, dims, []string{set1[1], set1[0]})
	require.NoError(t, err)
	assert.Equal(t, int64(15), *groupA.EndTime)

	set2 := recordMembers(t, svc, 20, 25)
	groupB, err := svc.CreateGroup(ctx, 1, dims, []string{set2[1], set2[0]})
	require.NoError(t, err)

	byID, err := svc.GetGroup(ctx, groupB.ID)
	require.NoError(t, err)

	recent, err := svc.MostRecentInWindowBySignature(ctx, 1, dims.String(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, recent.ID)
	assert.Equal(t, groupB.Members, recent.Members)

	recent, err = svc.MostRecentInWindow(ctx, 1, dims, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, groupB.ID, recent.ID)

	_, err = svc.MostRecentInWindow(ctx, 1, dims, 100, 200)
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.MostRecentInWindow(ctx, 1, dimensions.Map{"": "x"}, 0, 50)
	assert.True(t, errors.Is(err, errors.ErrInvalidDimensionKey))

	history, err := svc.History(ctx, 1, "{D1=K1}")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, groupB.ID, history[0].ID)
	assert.Equal(t, groupA.ID, history[1].ID)
}

func TestRecordMemberValidation(t *testing.T) {
	svc := NewGroupService(memory.New())

	_, err := svc.RecordMember(context.Background(), 20, 10)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.GetMember(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestOperationsAreCounted(t *testing.T) {
	ctx := context.Background()
	var store storage.Store = memory.New()
	svc := NewGroupService(store)

	ok := metrics.StoreOperations.WithLabelValues("get_group", metrics.OutcomeOK)
	notFound := metrics.StoreOperations.WithLabelValues("get_group", metrics.OutcomeNotFound)
	okBefore, notFoundBefore := testutil.ToFloat64(ok), testutil.ToFloat64(notFound)

	ids := recordMembers(t, svc, 10)
	group, err := svc.CreateGroup(ctx, 1, nil, ids)
	require.NoError(t, err)

	_, err = svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	_, err = svc.GetGroup(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, notFoundBefore+1, testutil.ToFloat64(notFound))
}

func TestCreateGroupFailuresAreCounted(t *testing.T) {
	ctx := context.Background()
	svc := NewGroupService(memory.New())

	failed := metrics.StoreOperations.WithLabelValues("save_group", metrics.OutcomeError)
	ok := metrics.StoreOperations.WithLabelValues("save_group", metrics.OutcomeOK)
	failedBefore, okBefore := testutil.ToFloat64(failed), testutil.ToFloat64(ok)

	_, err := svc.CreateGroup(ctx, 1, dimensions.Map{"D1": "K1"}, []string{"missing"})
	require.Error(t, err)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))

	ids := recordMembers(t, svc, 10)
	_, err = svc.CreateGroup(ctx, 1, dimensions.Map{"D1": "K1"}, ids)
	require.NoError(t, err)
	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok), "a created group is counted once")
}
