package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// PostgresSamplesRepo 采样仓库实现
type PostgresSamplesRepo struct {
	db *sql.DB
}

func NewPostgresSamplesRepo(db *sql.DB) *PostgresSamplesRepo {
	return &PostgresSamplesRepo{db: db}
}

var _ SamplesRepo = (*PostgresSamplesRepo)(nil)

// InsertBatch 单事务写入整批采样并更新设备 last_seen
// 事务保证读侧看不到半个批次；last_seen 每批只更新一次
// 返回值与 rows 逐位对齐；传感器在解析与写入之间被删除的行跳过，对应 id 为 0
// （用 EXISTS 守卫而不是捕获外键错误：Postgres 事务内出错后整个事务即中止）
func (r *PostgresSamplesRepo) InsertBatch(ctx context.Context, deviceID string, rows []NewSample, ts time.Time) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &domain.StorageError{Op: "InsertBatch", Err: err}
	}
	defer tx.Rollback()

	ids := make([]int64, len(rows))
	for i, row := range rows {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO samples (sensor_id, value, ts)
			 SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM sensors WHERE sensor_id = $1)
			 RETURNING id`,
			row.SensorID, row.Value, ts).Scan(&id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, &domain.StorageError{Op: "InsertBatch", Err: fmt.Errorf("insert sample: %w", err)}
		}
		ids[i] = id
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET last_seen = $2 WHERE device_id = $1`, deviceID, ts); err != nil {
		return nil, &domain.StorageError{Op: "InsertBatch", Err: fmt.Errorf("update last_seen: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return nil, &domain.StorageError{Op: "InsertBatch", Err: err}
	}
	return ids, nil
}

const sampleColumns = `
	sp.id, sp.sensor_id::text, sp.value, sp.ts,
	s.sensor_name, s.sensor_type, s.unit,
	d.device_id::text, d.device_name, d.org_id::text
`

const sampleJoins = `
	FROM samples sp
	JOIN sensors s ON s.sensor_id = sp.sensor_id
	JOIN devices d ON d.device_id = s.device_id
`

func scanSample(rows *sql.Rows) (*domain.Sample, error) {
	var sp domain.Sample
	err := rows.Scan(&sp.ID, &sp.SensorID, &sp.Value, &sp.Ts,
		&sp.SensorName, &sp.SensorType, &sp.Unit,
		&sp.DeviceID, &sp.DeviceName, &sp.OrgID)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// sampleWhere 组装过滤条件；tenantID 为空不加租户过滤
// 越权的 device/sensor 过滤条件自然得到空结果（租户隔离靠范围收缩，不靠逐行鉴权）
func sampleWhere(tenantID string, f domain.SampleFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	if tenantID != "" {
		args = append(args, tenantID)
		where += fmt.Sprintf(" AND d.org_id = $%d", len(args))
	}
	if f.DeviceID != "" {
		args = append(args, f.DeviceID)
		where += fmt.Sprintf(" AND d.device_id = $%d", len(args))
	}
	if f.SensorID != "" {
		args = append(args, f.SensorID)
		where += fmt.Sprintf(" AND sp.sensor_id = $%d", len(args))
	}
	if !f.Start.IsZero() {
		args = append(args, f.Start)
		where += fmt.Sprintf(" AND sp.ts >= $%d", len(args))
	}
	if !f.End.IsZero() {
		args = append(args, f.End)
		where += fmt.Sprintf(" AND sp.ts <= $%d", len(args))
	}
	return where, args
}

func (r *PostgresSamplesRepo) Range(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.Sample, error) {
	where, args := sampleWhere(tenantID, f)
	query := `SELECT ` + sampleColumns + sampleJoins + where + ` ORDER BY sp.ts DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "Range", Err: err}
	}
	defer rows.Close()

	var out []*domain.Sample
	for rows.Next() {
		sp, err := scanSample(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "Range", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "Range", Err: err}
	}
	return out, nil
}

// LatestByDevice 设备下每个活跃传感器的最新一条采样
// DISTINCT ON：每个 sensor 组内取最大 ts，不是简单 top-N
func (r *PostgresSamplesRepo) LatestByDevice(ctx context.Context, tenantID, deviceID string) ([]*domain.Sample, error) {
	query := `SELECT DISTINCT ON (sp.sensor_id) ` + sampleColumns + sampleJoins + `
		WHERE d.device_id = $1 AND s.active = TRUE`
	args := []any{deviceID}
	if tenantID != "" {
		args = append(args, tenantID)
		query += fmt.Sprintf(" AND d.org_id = $%d", len(args))
	}
	query += ` ORDER BY sp.sensor_id, sp.ts DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "LatestByDevice", Err: err}
	}
	defer rows.Close()

	var out []*domain.Sample
	for rows.Next() {
		sp, err := scanSample(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "LatestByDevice", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "LatestByDevice", Err: err}
	}
	return out, nil
}

// Statistics count/min/max/avg
// 未指定单个传感器时按传感器分组；指定时单行聚合
func (r *PostgresSamplesRepo) Statistics(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.SensorStats, error) {
	where, args := sampleWhere(tenantID, f)
	query := `
		SELECT sp.sensor_id::text, s.sensor_name,
		       COUNT(*), MIN(sp.value), MAX(sp.value), AVG(sp.value)
	` + sampleJoins + where + `
		GROUP BY sp.sensor_id, s.sensor_name
		ORDER BY s.sensor_name
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "Statistics", Err: err}
	}
	defer rows.Close()

	var out []*domain.SensorStats
	for rows.Next() {
		var st domain.SensorStats
		if err := rows.Scan(&st.SensorID, &st.SensorName, &st.Count, &st.Min, &st.Max, &st.Avg); err != nil {
			return nil, &domain.StorageError{Op: "Statistics", Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "Statistics", Err: err}
	}
	return out, nil
}
