package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/resultgroups/internal/errors"
	"github.com/mmynk/resultgroups/internal/models"
	"github.com/mmynk/resultgroups/internal/storage"
)

type memberRow struct {
	ID        string `db:"id"`
	StartTime int64  `db:"start_time"`
	EndTime   int64  `db:"end_time"`
	CreatedAt int64  `db:"created_at"`
}

// SaveMember persists a new member result. ID and CreatedAt are filled in
// only once the insert succeeds.
func (s *SQLiteStore) SaveMember(ctx context.Context, member *models.MemberResult) error {
	if err := storage.ValidateMember(member); err != nil {
		return err
	}

	id, createdAt := member.ID, member.CreatedAt
	if id == "" {
		id = uuid.New().String()
	}
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO member_results (id, start_time, end_time, created_at) VALUES (?, ?, ?, ?)",
		id, member.StartTime, member.EndTime, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member result: %w", err)
	}

	member.ID = id
	member.CreatedAt = createdAt
	return nil
}

// GetMember retrieves a member result by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*models.MemberResult, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, start_time, end_time, created_at FROM member_results WHERE id = ?",
		memberID,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("member result", memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member result: %w", err)
	}

	return &models.MemberResult{
		ID:        row.ID,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		CreatedAt: row.CreatedAt,
	}, nil
}
