// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/resultgroups/internal/models"
)

// MemberStore persists individual member results.
type MemberStore interface {
	// SaveMember persists a new member result.
	// The member.ID field will be populated by the store when empty.
	SaveMember(ctx context.Context, member *models.MemberResult) error

	// GetMember retrieves a member result by its ID.
	// Returns an error wrapping errors.ErrNotFound if it does not exist.
	GetMember(ctx context.Context, memberID string) (*models.MemberResult, error)
}

// GroupStore persists result groups and answers partition queries.
type GroupStore interface {
	// SaveGroup validates the group, canonicalizes its dimensions, derives
	// its time bounds and persists it with its ordered members in one
	// transaction. ID, Signature, StartTime, EndTime, CreatedSequence and
	// CreatedAt are populated on success and left untouched on failure.
	SaveGroup(ctx context.Context, group *models.GroupRecord) error

	// GetGroup retrieves a group by its ID with its members in save order.
	// Returns an error wrapping errors.ErrNotFound if it does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.GroupRecord, error)

	// FindMostRecentInTimeWindow returns the most recently saved group of
	// the partition whose end time lies in [start, end]. The signature may
	// be any valid form; it is normalized before matching.
	// Returns an error wrapping errors.ErrNotFound if no group matches.
	FindMostRecentInTimeWindow(ctx context.Context, ownerConfigID int64, signature string, start, end int64) (*models.GroupRecord, error)

	// ListPartition returns every group of the partition, most recent first.
	ListPartition(ctx context.Context, ownerConfigID int64, signature string) ([]*models.GroupRecord, error)
}

// Store combines member and group storage.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the service layer.
type Store interface {
	MemberStore
	GroupStore

	// Close releases any resources held by the store.
	Close() error
}
