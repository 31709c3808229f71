package matching

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLMembershipStore writes memberships, role assignments,
// recommendations and waiting list requests into the host platform's
// SQL schema. All writes are idempotent upserts so a retried login
// cannot duplicate a membership.
type SQLMembershipStore struct {
	db *sql.DB
}

// NewSQLMembershipStore creates a membership store on the host
// database.
func NewSQLMembershipStore(db *sql.DB) *SQLMembershipStore {
	return &SQLMembershipStore{db: db}
}

// IsMember implements MembershipStore.
func (s *SQLMembershipStore) IsMember(ctx context.Context, userID, refID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1
		FROM obj_members m
		INNER JOIN object_reference r ON r.obj_id = m.obj_id
		WHERE r.ref_id = $1 AND m.usr_id = $2 AND m.member = 1
	`, refID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// AddMember implements MembershipStore.
func (s *SQLMembershipStore) AddMember(ctx context.Context, userID, refID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO obj_members (obj_id, usr_id, member)
		SELECT r.obj_id, $1, 1 FROM object_reference r WHERE r.ref_id = $2
		ON CONFLICT (obj_id, usr_id) DO UPDATE SET member = 1
	`, userID, refID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// AddRecommendation implements MembershipStore.
func (s *SQLMembershipStore) AddRecommendation(ctx context.Context, userID, refID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rep_rec_content (usr_id, ref_id)
		VALUES ($1, $2)
		ON CONFLICT (usr_id, ref_id) DO NOTHING
	`, userID, refID)
	if err != nil {
		return fmt.Errorf("failed to add recommendation: %w", err)
	}
	return nil
}

// LocalRoles implements MembershipStore.
func (s *SQLMembershipStore) LocalRoles(ctx context.Context, refID int64) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.obj_id, o.title
		FROM rbac_fa fa
		INNER JOIN object_data o ON o.obj_id = fa.rol_id
		WHERE fa.parent_ref = $1 AND o.type = 'role'
		ORDER BY o.obj_id
	`, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to read local roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Title); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AssignRole implements MembershipStore.
func (s *SQLMembershipStore) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rbac_ua (usr_id, rol_id)
		VALUES ($1, $2)
		ON CONFLICT (usr_id, rol_id) DO NOTHING
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RequestWaitingList implements MembershipStore.
func (s *SQLMembershipStore) RequestWaitingList(ctx context.Context, userID, refID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crs_waiting_list (obj_id, usr_id, sub_time)
		SELECT r.obj_id, $1, $2 FROM object_reference r WHERE r.ref_id = $3
		ON CONFLICT (obj_id, usr_id) DO NOTHING
	`, userID, time.Now().Unix(), refID)
	if err != nil {
		return fmt.Errorf("failed to file waiting list request: %w", err)
	}
	return nil
}

// RemoveWaitingListRequest implements MembershipStore.
func (s *SQLMembershipStore) RemoveWaitingListRequest(ctx context.Context, userID, refID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM crs_waiting_list
		WHERE usr_id = $1
		  AND obj_id IN (SELECT obj_id FROM object_reference WHERE ref_id = $2)
	`, userID, refID)
	if err != nil {
		return fmt.Errorf("failed to withdraw waiting list request: %w", err)
	}
	return nil
}
