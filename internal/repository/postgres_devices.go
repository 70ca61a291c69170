package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// PostgresDevicesRepo 设备仓库实现
type PostgresDevicesRepo struct {
	db *sql.DB
}

func NewPostgresDevicesRepo(db *sql.DB) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db}
}

var _ DevicesRepo = (*PostgresDevicesRepo)(nil)

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == foreignKeyViolation
	}
	return false
}

const deviceColumns = `
	device_id::text, org_id::text, device_name,
	address, description, last_seen, active, created_at
`

func scanDevice(row interface{ Scan(...any) error }) (*domain.Device, error) {
	var d domain.Device
	err := row.Scan(&d.DeviceID, &d.OrgID, &d.DeviceName,
		&d.Address, &d.Description, &d.LastSeen, &d.Active, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDevicesRepo) CreateDevice(ctx context.Context, dev *domain.Device) error {
	query := `
		INSERT INTO devices (device_id, org_id, device_name, address, description, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		dev.DeviceID, dev.OrgID, dev.DeviceName, dev.Address, dev.Description, dev.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "device", Key: dev.DeviceName}
		}
		if isForeignKeyViolation(err) {
			return &domain.NotFoundError{Resource: "organization", Key: dev.OrgID}
		}
		return &domain.StorageError{Op: "CreateDevice", Err: err}
	}
	return nil
}

func (r *PostgresDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Resource: "device", Key: deviceID}
		}
		return nil, &domain.StorageError{Op: "GetDevice", Err: err}
	}
	return d, nil
}

func (r *PostgresDevicesRepo) GetDeviceByName(ctx context.Context, name string) (*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_name = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Resource: "device", Key: name}
		}
		return nil, &domain.StorageError{Op: "GetDeviceByName", Err: err}
	}
	return d, nil
}

// ListDevices orgID 为空表示不做租户过滤（admin）
func (r *PostgresDevicesRepo) ListDevices(ctx context.Context, orgID string) ([]*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices`
	args := []any{}
	if orgID != "" {
		query += ` WHERE org_id = $1`
		args = append(args, orgID)
	}
	query += ` ORDER BY device_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "ListDevices", Err: err}
	}
	defer rows.Close()

	var out []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "ListDevices", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "ListDevices", Err: err}
	}
	return out, nil
}

// DeleteDevice 级联删除传感器、解码配置与采样
func (r *PostgresDevicesRepo) DeleteDevice(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return &domain.StorageError{Op: "DeleteDevice", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "device", Key: deviceID}
	}
	return nil
}
