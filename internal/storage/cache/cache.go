// Package cache wraps a storage.Store with an LRU of hydrated groups.
//
// Saved groups are never modified, so a cached entry stays valid until it is
// evicted. Window and partition queries always go to the backing store since
// a later save can change their answer; the groups they return are added to
// the cache.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mmynk/resultgroups/internal/metrics"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is a read-through group cache in front of another Store.
type Store struct {
	storage.Store

	groups *lru.Cache[string, *models.GroupRecord]
	loads  singleflight.Group
}

// New wraps backing with a cache holding up to size groups.
func New(backing storage.Store, size int) (*Store, error) {
	groups, err := lru.New[string, *models.GroupRecord](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create group cache: %w", err)
	}
	return &Store{Store: backing, groups: groups}, nil
}

// Len returns the number of cached groups.
func (s *Store) Len() int {
	return s.groups.Len()
}

// SaveGroup saves through to the backing store and caches the result.
func (s *Store) SaveGroup(ctx context.Context, group *models.GroupRecord) error {
	if err := s.Store.SaveGroup(ctx, group); err != nil {
		return err
	}
	s.groups.Add(group.ID, group.Clone())
	return nil
}

// GetGroup serves from the cache, collapsing concurrent misses for the same
// ID into one backing load.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.GroupRecord, error) {
	if g, ok := s.groups.Get(groupID); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return g.Clone(), nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := s.loads.Do(groupID, func() (interface{}, error) {
		g, err := s.Store.GetGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		s.groups.Add(groupID, g)
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.GroupRecord).Clone(), nil
}

// FindMostRecentInTimeWindow queries the backing store and caches the match.
func (s *Store) FindMostRecentInTimeWindow(ctx context.Context, ownerConfigID int64, signature string, start, end int64) (*models.GroupRecord, error) {
	g, err := s.Store.FindMostRecentInTimeWindow(ctx, ownerConfigID, signature, start, end)
	if err != nil {
		return nil, err
	}
	s.groups.Add(g.ID, g.Clone())
	return g, nil
}

// ListPartition queries the backing store and caches every group returned.
func (s *Store) ListPartition(ctx context.Context, ownerConfigID int64, signature string) ([]*models.GroupRecord, error) {
	groups, err := s.Store.ListPartition(ctx, ownerConfigID, signature)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		s.groups.Add(g.ID, g.Clone())
	}
	return groups, nil
}
