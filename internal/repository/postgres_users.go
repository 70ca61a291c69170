package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// PostgresUsersRepo 用户仓库实现
type PostgresUsersRepo struct {
	db *sql.DB
}

func NewPostgresUsersRepo(db *sql.DB) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

var _ UsersRepo = (*PostgresUsersRepo)(nil)

func (r *PostgresUsersRepo) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, org_id, account, role, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.UserID, user.OrgID, user.Account, user.Role, user.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "user", Key: user.Account}
		}
		if isForeignKeyViolation(err) {
			return &domain.NotFoundError{Resource: "organization", Key: user.OrgID}
		}
		return &domain.StorageError{Op: "CreateUser", Err: err}
	}
	return nil
}

func (r *PostgresUsersRepo) ListUsers(ctx context.Context, orgID string) ([]*domain.User, error) {
	query := `
		SELECT user_id::text, org_id::text, account, role, active, created_at
		FROM users
		WHERE org_id = $1
		ORDER BY account
	`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, &domain.StorageError{Op: "ListUsers", Err: err}
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.UserID, &u.OrgID, &u.Account, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, &domain.StorageError{Op: "ListUsers", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "ListUsers", Err: err}
	}
	return out, nil
}
