package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mmynk/resultgroups/internal/dimensions"
	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
	"github.com/mmynk/resultgroups/internal/window"
)

const groupColumns = "created_seq, id, owner_config_id, dimension_signature, start_time, end_time, created_at"

type groupRow struct {
	CreatedSeq    int64         `db:"created_seq"`
	ID            string        `db:"id"`
	OwnerConfigID int64         `db:"owner_config_id"`
	Signature     string        `db:"dimension_signature"`
	StartTime     sql.NullInt64 `db:"start_time"`
	EndTime       sql.NullInt64 `db:"end_time"`
	CreatedAt     int64         `db:"created_at"`
}

type groupMemberRow struct {
	MemberID  string `db:"member_id"`
	StartTime int64  `db:"start_time"`
	EndTime   int64  `db:"end_time"`
}

// SaveGroup persists a new group and its ordered member snapshots in one
// transaction. The sequence comes from the AUTOINCREMENT key, so concurrent
// saves never share one.
func (s *SQLiteStore) SaveGroup(ctx context.Context, group *models.GroupRecord) error {
	signature, err := storage.PrepareGroup(group)
	if err != nil {
		return err
	}
	startTime, endTime := models.DeriveBounds(group.Members)
	groupID := uuid.New().String()
	createdAt := time.Now().Unix()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO result_groups (id, owner_config_id, dimension_signature, start_time, end_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		groupID, group.OwnerConfigID, signature, nullInt64(startTime), nullInt64(endTime), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read group sequence: %w", err)
	}

	members := make([]models.MemberResult, len(group.Members))
	for i, m := range group.Members {
		members[i] = m.Snapshot()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO result_group_members (group_id, position, member_id, start_time, end_time)
			 VALUES (?, ?, ?, ?, ?)`,
			groupID, i, m.ID, m.StartTime, m.EndTime,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.ID = groupID
	group.Dimensions = group.Dimensions.Clone()
	group.Signature = signature
	group.Members = members
	group.StartTime = startTime
	group.EndTime = endTime
	group.CreatedSequence = seq
	group.CreatedAt = createdAt
	return nil
}

// GetGroup retrieves a group by ID, including its members in save order.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.GroupRecord, error) {
	var row groupRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+groupColumns+" FROM result_groups WHERE id = ?",
		groupID,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return hydrate(ctx, s.db, row)
}

// FindMostRecentInTimeWindow returns the latest-saved group of the partition
// whose end time lies in [start, end]. Lookup and hydration share a
// transaction so the result is never partially loaded.
func (s *SQLiteStore) FindMostRecentInTimeWindow(ctx context.Context, ownerConfigID int64, signature string, start, end int64) (*models.GroupRecord, error) {
	signature, err := storage.PrepareQuery(ownerConfigID, signature)
	if err != nil {
		return nil, err
	}
	w := window.Window{Start: start, End: end}
	notFound := errors.NewNotFound("group in window",
		fmt.Sprintf("%d/%s [%d, %d]", ownerConfigID, signature, start, end))
	if w.Empty() {
		return nil, notFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row groupRow
	err = tx.GetContext(ctx, &row,
		`SELECT `+groupColumns+` FROM result_groups
		 WHERE owner_config_id = ? AND dimension_signature = ?
		   AND end_time IS NOT NULL AND end_time >= ? AND end_time <= ?
		 ORDER BY created_seq DESC
		 LIMIT 1`,
		ownerConfigID, signature, w.Start, w.End,
	)
	if err == sql.ErrNoRows {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group in window: %w", err)
	}

	group, err := hydrate(ctx, tx, row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// ListPartition returns every group of the partition, most recent first.
func (s *SQLiteStore) ListPartition(ctx context.Context, ownerConfigID int64, signature string) ([]*models.GroupRecord, error) {
	signature, err := storage.PrepareQuery(ownerConfigID, signature)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rows []groupRow
	err = tx.SelectContext(ctx, &rows,
		`SELECT `+groupColumns+` FROM result_groups
		 WHERE owner_config_id = ? AND dimension_signature = ?
		 ORDER BY created_seq DESC`,
		ownerConfigID, signature,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list partition: %w", err)
	}

	groups := make([]*models.GroupRecord, 0, len(rows))
	for _, row := range rows {
		group, err := hydrate(ctx, tx, row)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return groups, nil
}

// hydrate builds a group from its header row and loads its members.
func hydrate(ctx context.Context, q sqlx.QueryerContext, row groupRow) (*models.GroupRecord, error) {
	dims, err := dimensions.Parse(row.Signature)
	if err != nil {
		return nil, fmt.Errorf("group %s has a corrupt signature: %w", row.ID, err)
	}

	var memberRows []groupMemberRow
	err = sqlx.SelectContext(ctx, q, &memberRows,
		`SELECT member_id, start_time, end_time FROM result_group_members
		 WHERE group_id = ? ORDER BY position`,
		row.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	members := make([]models.MemberResult, len(memberRows))
	for i, m := range memberRows {
		members[i] = models.MemberResult{ID: m.MemberID, StartTime: m.StartTime, EndTime: m.EndTime}
	}

	return &models.GroupRecord{
		ID:              row.ID,
		OwnerConfigID:   row.OwnerConfigID,
		Dimensions:      dims,
		Signature:       row.Signature,
		Members:         members,
		StartTime:       fromNull(row.StartTime),
		EndTime:         fromNull(row.EndTime),
		CreatedSequence: row.CreatedSeq,
		CreatedAt:       row.CreatedAt,
	}, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNull(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
