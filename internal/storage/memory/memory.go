// Package memory provides an in-process implementation of storage.Store.
// Groups of a partition are kept as an append-only log in save order.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
	"github.com/mmynk/resultgroups/internal/window"
)

var _ storage.Store = (*Store)(nil)

type partitionKey struct {
	ownerConfigID int64
	signature     string
}

// Store keeps members and groups in maps guarded by one lock.
//
// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	members    map[string]models.MemberResult
	groups     map[string]*models.GroupRecord
	partitions map[partitionKey][]*models.GroupRecord
	seq        int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		members:    map[string]models.MemberResult{},
		groups:     map[string]*models.GroupRecord{},
		partitions: map[partitionKey][]*models.GroupRecord{},
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// SaveMember stores a member result.
func (s *Store) SaveMember(_ context.Context, member *models.MemberResult) error {
	if err := storage.ValidateMember(member); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *member
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if _, exists := s.members[stored.ID]; exists {
		return fmt.Errorf("member result %s already exists", stored.ID)
	}
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().Unix()
	}
	s.members[stored.ID] = stored
	*member = stored
	return nil
}

// GetMember returns a copy of the stored member result.
func (s *Store) GetMember(_ context.Context, memberID string) (*models.MemberResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberID]
	if !ok {
		return nil, errors.NewNotFound("member result", memberID)
	}
	return &m, nil
}

// SaveGroup appends a group to its partition log.
func (s *Store) SaveGroup(_ context.Context, group *models.GroupRecord) error {
	signature, err := storage.PrepareGroup(group)
	if err != nil {
		return err
	}
	startTime, endTime := models.DeriveBounds(group.Members)

	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]models.MemberResult, len(group.Members))
	for i, m := range group.Members {
		if _, ok := s.members[m.ID]; !ok {
			return fmt.Errorf("member result %s: %w", m.ID, errors.ErrInvalidReference)
		}
		members[i] = m.Snapshot()
	}

	s.seq++
	stored := &models.GroupRecord{
		ID:              uuid.New().String(),
		OwnerConfigID:   group.OwnerConfigID,
		Dimensions:      group.Dimensions.Clone(),
		Signature:       signature,
		Members:         members,
		StartTime:       startTime,
		EndTime:         endTime,
		CreatedSequence: s.seq,
		CreatedAt:       time.Now().Unix(),
	}

	key := partitionKey{stored.OwnerConfigID, signature}
	s.groups[stored.ID] = stored
	s.partitions[key] = append(s.partitions[key], stored)

	*group = *stored.Clone()
	return nil
}

// GetGroup returns a copy of the stored group.
func (s *Store) GetGroup(_ context.Context, groupID string) (*models.GroupRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, errors.NewNotFound("group", groupID)
	}
	return g.Clone(), nil
}

// FindMostRecentInTimeWindow scans the partition log for the latest group
// whose end time lies in [start, end].
func (s *Store) FindMostRecentInTimeWindow(_ context.Context, ownerConfigID int64, signature string, start, end int64) (*models.GroupRecord, error) {
	signature, err := storage.PrepareQuery(ownerConfigID, signature)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	w := window.Window{Start: start, End: end}
	best := window.MostRecent(s.partitions[partitionKey{ownerConfigID, signature}], ownerConfigID, signature, w)
	if best == nil {
		return nil, errors.NewNotFound("group in window",
			fmt.Sprintf("%d/%s [%d, %d]", ownerConfigID, signature, start, end))
	}
	return best.Clone(), nil
}

// ListPartition returns copies of the partition's groups, most recent first.
func (s *Store) ListPartition(_ context.Context, ownerConfigID int64, signature string) ([]*models.GroupRecord, error) {
	signature, err := storage.PrepareQuery(ownerConfigID, signature)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.partitions[partitionKey{ownerConfigID, signature}]
	groups := make([]*models.GroupRecord, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		groups = append(groups, log[i].Clone())
	}
	return groups, nil
}
