package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// PostgresSensorsRepo 传感器与解码配置仓库实现
type PostgresSensorsRepo struct {
	db *sql.DB
}

func NewPostgresSensorsRepo(db *sql.DB) *PostgresSensorsRepo {
	return &PostgresSensorsRepo{db: db}
}

var _ SensorsRepo = (*PostgresSensorsRepo)(nil)

func (r *PostgresSensorsRepo) CreateSensor(ctx context.Context, s *domain.Sensor) error {
	query := `
		INSERT INTO sensors (sensor_id, device_id, sensor_name, sensor_type, unit, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.SensorID, s.DeviceID, s.SensorName, s.SensorType, s.Unit, s.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "sensor", Key: s.DeviceID + "/" + s.SensorName}
		}
		if isForeignKeyViolation(err) {
			return &domain.NotFoundError{Resource: "device", Key: s.DeviceID}
		}
		return &domain.StorageError{Op: "CreateSensor", Err: err}
	}
	return nil
}

func (r *PostgresSensorsRepo) GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error) {
	query := `
		SELECT sensor_id::text, device_id::text, sensor_name, sensor_type, unit, active, created_at
		FROM sensors
		WHERE sensor_id = $1
	`
	var s domain.Sensor
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(
		&s.SensorID, &s.DeviceID, &s.SensorName, &s.SensorType, &s.Unit, &s.Active, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Resource: "sensor", Key: sensorID}
		}
		return nil, &domain.StorageError{Op: "GetSensor", Err: err}
	}
	return &s, nil
}

// ResolveSensor 采集热路径：走 (device_id, sensor_name) 唯一索引，
// 一次查询同时取回可能存在的解码配置
func (r *PostgresSensorsRepo) ResolveSensor(ctx context.Context, deviceID, sensorName string) (*domain.Sensor, *domain.DecodingConfig, error) {
	query := `
		SELECT s.sensor_id::text, s.device_id::text, s.sensor_name, s.sensor_type, s.unit, s.active, s.created_at,
		       c.config_id::text, c.register_address, c.register_kind, c.encoding, c.scale, c.value_offset
		FROM sensors s
		LEFT JOIN sensor_decoding_configs c ON c.sensor_id = s.sensor_id
		WHERE s.device_id = $1 AND s.sensor_name = $2
	`
	var s domain.Sensor
	var cfgID sql.NullString
	var regAddr sql.NullInt64
	var regKind, encoding sql.NullString
	var scale, offset sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, deviceID, sensorName).Scan(
		&s.SensorID, &s.DeviceID, &s.SensorName, &s.SensorType, &s.Unit, &s.Active, &s.CreatedAt,
		&cfgID, &regAddr, &regKind, &encoding, &scale, &offset)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, &domain.NotFoundError{Resource: "sensor", Key: deviceID + "/" + sensorName}
		}
		return nil, nil, &domain.StorageError{Op: "ResolveSensor", Err: err}
	}

	var cfg *domain.DecodingConfig
	if cfgID.Valid {
		cfg = &domain.DecodingConfig{
			ConfigID:        cfgID.String,
			SensorID:        s.SensorID,
			RegisterAddress: int(regAddr.Int64),
			RegisterKind:    regKind.String,
			Encoding:        encoding.String,
			Scale:           scale.Float64,
			Offset:          offset.Float64,
		}
	}
	return &s, cfg, nil
}

func (r *PostgresSensorsRepo) ListSensors(ctx context.Context, deviceID string) ([]*domain.Sensor, error) {
	query := `
		SELECT sensor_id::text, device_id::text, sensor_name, sensor_type, unit, active, created_at
		FROM sensors
		WHERE device_id = $1
		ORDER BY sensor_name
	`
	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, &domain.StorageError{Op: "ListSensors", Err: err}
	}
	defer rows.Close()

	var out []*domain.Sensor
	for rows.Next() {
		var s domain.Sensor
		if err := rows.Scan(&s.SensorID, &s.DeviceID, &s.SensorName, &s.SensorType, &s.Unit, &s.Active, &s.CreatedAt); err != nil {
			return nil, &domain.StorageError{Op: "ListSensors", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "ListSensors", Err: err}
	}
	return out, nil
}

func (r *PostgresSensorsRepo) UpdateSensor(ctx context.Context, s *domain.Sensor) error {
	query := `
		UPDATE sensors
		SET sensor_name = $2, sensor_type = $3, unit = $4, active = $5
		WHERE sensor_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, s.SensorID, s.SensorName, s.SensorType, s.Unit, s.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "sensor", Key: s.DeviceID + "/" + s.SensorName}
		}
		return &domain.StorageError{Op: "UpdateSensor", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "sensor", Key: s.SensorID}
	}
	return nil
}

// DeleteSensor 级联删除解码配置与历史采样（历史与传感器身份绑定）
func (r *PostgresSensorsRepo) DeleteSensor(ctx context.Context, sensorID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE sensor_id = $1`, sensorID)
	if err != nil {
		return &domain.StorageError{Op: "DeleteSensor", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "sensor", Key: sensorID}
	}
	return nil
}

// UpsertDecodingConfig 替换式写入（ON CONFLICT sensor_id DO UPDATE）
func (r *PostgresSensorsRepo) UpsertDecodingConfig(ctx context.Context, c *domain.DecodingConfig) error {
	query := `
		INSERT INTO sensor_decoding_configs
			(config_id, sensor_id, register_address, register_kind, encoding, scale, value_offset, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (sensor_id)
		DO UPDATE SET register_address = EXCLUDED.register_address,
		              register_kind = EXCLUDED.register_kind,
		              encoding = EXCLUDED.encoding,
		              scale = EXCLUDED.scale,
		              value_offset = EXCLUDED.value_offset,
		              updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ConfigID, c.SensorID, c.RegisterAddress, c.RegisterKind, c.Encoding, c.Scale, c.Offset)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &domain.NotFoundError{Resource: "sensor", Key: c.SensorID}
		}
		return &domain.StorageError{Op: "UpsertDecodingConfig", Err: err}
	}
	return nil
}

func (r *PostgresSensorsRepo) GetDecodingConfig(ctx context.Context, sensorID string) (*domain.DecodingConfig, error) {
	query := `
		SELECT config_id::text, sensor_id::text, register_address, register_kind, encoding, scale, value_offset, updated_at
		FROM sensor_decoding_configs
		WHERE sensor_id = $1
	`
	var c domain.DecodingConfig
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(
		&c.ConfigID, &c.SensorID, &c.RegisterAddress, &c.RegisterKind, &c.Encoding, &c.Scale, &c.Offset, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Resource: "decoding config", Key: sensorID}
		}
		return nil, &domain.StorageError{Op: "GetDecodingConfig", Err: err}
	}
	return &c, nil
}

func (r *PostgresSensorsRepo) DeleteDecodingConfig(ctx context.Context, sensorID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sensor_decoding_configs WHERE sensor_id = $1`, sensorID)
	if err != nil {
		return &domain.StorageError{Op: "DeleteDecodingConfig", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Resource: "decoding config", Key: sensorID}
	}
	return nil
}
