// Package service is the caller-facing API over result group storage.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/resultgroups/internal/dimensions"
	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/metrics"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
	"github.com/mmynk/resultgroups/pkg/logging"
)

// GroupService records member results and groups them.
type GroupService struct {
	store storage.Store
	log   *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store, log: logging.Component("group_service")}
}

// RecordMember stores a new member result spanning [startTime, endTime].
func (s *GroupService) RecordMember(ctx context.Context, startTime, endTime int64) (member *models.MemberResult, err error) {
	defer observe("save_member", time.Now(), &err)
	s.log.Debug("RecordMember request received", "start_time", startTime, "end_time", endTime)

	member = &models.MemberResult{StartTime: startTime, EndTime: endTime}
	if err := s.store.SaveMember(ctx, member); err != nil {
		s.log.Error("RecordMember failed", "error", err)
		return nil, err
	}

	s.log.Info("Member recorded", "member_id", member.ID, "end_time", member.EndTime)
	return member, nil
}

// GetMember retrieves a member result by ID.
func (s *GroupService) GetMember(ctx context.Context, memberID string) (member *models.MemberResult, err error) {
	defer observe("get_member", time.Now(), &err)

	member, err = s.store.GetMember(ctx, memberID)
	if err != nil {
		s.log.Warn("GetMember failed", "member_id", memberID, "error", err)
		return nil, err
	}
	return member, nil
}

// CreateGroup groups already-recorded members, in the given order, under
// the partition (ownerConfigID, dims).
func (s *GroupService) CreateGroup(ctx context.Context, ownerConfigID int64, dims dimensions.Map, memberIDs []string) (group *models.GroupRecord, err error) {
	defer observe("save_group", time.Now(), &err)
	s.log.Info("CreateGroup request received",
		"owner_config_id", ownerConfigID,
		"dimensions", dims.String(),
		"members_count", len(memberIDs),
	)

	group = &models.GroupRecord{OwnerConfigID: ownerConfigID, Dimensions: dims}

	// Reject bad keys before looking members up.
	if _, err := storage.PrepareGroup(group); err != nil {
		s.log.Warn("CreateGroup rejected", "error", err)
		return nil, err
	}

	group.Members = make([]models.MemberResult, 0, len(memberIDs))
	for _, id := range memberIDs {
		m, err := s.store.GetMember(ctx, id)
		if errors.IsNotFound(err) {
			err = fmt.Errorf("member result %s: %w", id, errors.ErrInvalidReference)
		}
		if err != nil {
			s.log.Warn("CreateGroup failed to resolve member", "member_id", id, "error", err)
			return nil, err
		}
		group.Members = append(group.Members, *m)
	}

	if err := s.save(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// SaveGroup persists a group whose members are already populated.
func (s *GroupService) SaveGroup(ctx context.Context, group *models.GroupRecord) (err error) {
	defer observe("save_group", time.Now(), &err)
	return s.save(ctx, group)
}

func (s *GroupService) save(ctx context.Context, group *models.GroupRecord) error {
	if err := s.store.SaveGroup(ctx, group); err != nil {
		s.log.Error("SaveGroup failed", "error", err)
		return err
	}
	metrics.GroupMembers.Observe(float64(len(group.Members)))

	s.log.Info("Group saved",
		"group_id", group.ID,
		"owner_config_id", group.OwnerConfigID,
		"signature", group.Signature,
		"sequence", group.CreatedSequence,
		"members_count", len(group.Members),
	)
	return nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (group *models.GroupRecord, err error) {
	defer observe("get_group", time.Now(), &err)
	s.log.Debug("GetGroup request received", "group_id", groupID)

	group, err = s.store.GetGroup(ctx, groupID)
	if err != nil {
		s.log.Warn("GetGroup failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return group, nil
}

// MostRecentInWindow returns the latest group saved for (ownerConfigID,
// dims) whose end time lies in [start, end].
func (s *GroupService) MostRecentInWindow(ctx context.Context, ownerConfigID int64, dims dimensions.Map, start, end int64) (*models.GroupRecord, error) {
	signature, err := dimensions.Canonicalize(dims)
	if err != nil {
		observe("find_in_window", time.Now(), &err)
		return nil, err
	}
	return s.MostRecentInWindowBySignature(ctx, ownerConfigID, signature, start, end)
}

// MostRecentInWindowBySignature is MostRecentInWindow for a caller that
// already holds a signature string.
func (s *GroupService) MostRecentInWindowBySignature(ctx context.Context, ownerConfigID int64, signature string, start, end int64) (group *models.GroupRecord, err error) {
	defer observe("find_in_window", time.Now(), &err)
	s.log.Debug("MostRecentInWindow request received",
		"owner_config_id", ownerConfigID,
		"signature", signature,
		"window_start", start,
		"window_end", end,
	)

	group, err = s.store.FindMostRecentInTimeWindow(ctx, ownerConfigID, signature, start, end)
	if errors.IsNotFound(err) {
		s.log.Debug("No group in window", "owner_config_id", ownerConfigID, "signature", signature)
		return nil, err
	}
	if err != nil {
		s.log.Error("MostRecentInWindow failed", "error", err)
		return nil, err
	}

	s.log.Debug("MostRecentInWindow successful", "group_id", group.ID, "sequence", group.CreatedSequence)
	return group, nil
}

// History lists every group of a partition, most recent first.
func (s *GroupService) History(ctx context.Context, ownerConfigID int64, signature string) (groups []*models.GroupRecord, err error) {
	defer observe("list_partition", time.Now(), &err)

	groups, err = s.store.ListPartition(ctx, ownerConfigID, signature)
	if err != nil {
		s.log.Error("History failed", "owner_config_id", ownerConfigID, "signature", signature, "error", err)
		return nil, err
	}

	s.log.Debug("History successful", "owner_config_id", ownerConfigID, "count", len(groups))
	return groups, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveOperation(operation, start, *err)
}
