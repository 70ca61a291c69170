package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// PostgresOrganizationsRepo 租户仓库实现
type PostgresOrganizationsRepo struct {
	db *sql.DB
}

func NewPostgresOrganizationsRepo(db *sql.DB) *PostgresOrganizationsRepo {
	return &PostgresOrganizationsRepo{db: db}
}

// 确保实现了接口
var _ OrganizationsRepo = (*PostgresOrganizationsRepo)(nil)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func (r *PostgresOrganizationsRepo) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (org_id, org_name, contact_email, contact_phone, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		org.OrgID, org.OrgName, org.ContactEmail, org.ContactPhone, org.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "organization", Key: org.OrgName}
		}
		return &domain.StorageError{Op: "CreateOrganization", Err: err}
	}
	return nil
}

func (r *PostgresOrganizationsRepo) GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	query := `
		SELECT org_id::text, org_name,
		       COALESCE(contact_email, '') AS contact_email,
		       COALESCE(contact_phone, '') AS contact_phone,
		       active, created_at
		FROM organizations
		WHERE org_id = $1
	`
	var org domain.Organization
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&org.OrgID, &org.OrgName, &org.ContactEmail, &org.ContactPhone, &org.Active, &org.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Resource: "organization", Key: orgID}
		}
		return nil, &domain.StorageError{Op: "GetOrganization", Err: err}
	}
	return &org, nil
}

func (r *PostgresOrganizationsRepo) ListOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	query := `
		SELECT org_id::text, org_name,
		       COALESCE(contact_email, '') AS contact_email,
		       COALESCE(contact_phone, '') AS contact_phone,
		       active, created_at
		FROM organizations
		ORDER BY org_name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "ListOrganizations", Err: err}
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.OrgID, &org.OrgName, &org.ContactEmail, &org.ContactPhone, &org.Active, &org.CreatedAt); err != nil {
			return nil, &domain.StorageError{Op: "ListOrganizations", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, &org)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "ListOrganizations", Err: err}
	}
	return out, nil
}

// SetOrganizationActive 正常运营优先停用而不是删除
func (r *PostgresOrganizationsRepo) SetOrganizationActive(ctx context.Context, orgID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET active = $2 WHERE org_id = $1`, orgID, active)
	if err != nil {
		return &domain.StorageError{Op: "SetOrganizationActive", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "organization", Key: orgID}
	}
	return nil
}

// DeleteOrganization 级联删除该租户的用户与设备（以及设备下的传感器/采样）
func (r *PostgresOrganizationsRepo) DeleteOrganization(ctx context.Context, orgID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		return &domain.StorageError{Op: "DeleteOrganization", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "organization", Key: orgID}
	}
	return nil
}
