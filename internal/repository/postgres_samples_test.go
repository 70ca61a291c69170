package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emryou/solar-log-hub/internal/domain"
)

func setupMockSamplesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSamplesRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresSamplesRepo(db)
}

var sampleTestColumns = []string{
	"id", "sensor_id", "value", "ts",
	"sensor_name", "sensor_type", "unit",
	"device_id", "device_name", "org_id",
}

// ============================================
// InsertBatch 事务写入测试
// ============================================

func TestInsertBatch_Success(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	deviceID := uuid.New().String()
	sensor1 := uuid.New().String()
	sensor2 := uuid.New().String()
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO samples`).
		WithArgs(sensor1, 812.5, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectQuery(`INSERT INTO samples`).
		WithArgs(sensor2, 45.2, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(102))
	mock.ExpectExec(`UPDATE devices SET last_seen`).
		WithArgs(deviceID, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ids, err := repo.InsertBatch(ctx, deviceID, []NewSample{
		{SensorID: sensor1, Value: 812.5},
		{SensorID: sensor2, Value: 45.2},
	}, ts)

	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_EmptyStillTouchesLastSeen(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	deviceID := uuid.New().String()
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE devices SET last_seen`).
		WithArgs(deviceID, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ids, err := repo.InsertBatch(ctx, deviceID, nil, ts)

	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_SkipsRowForVanishedSensor(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	deviceID := uuid.New().String()
	sensor1 := uuid.New().String()
	sensor2 := uuid.New().String()
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO samples`).
		WithArgs(sensor1, 812.5, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	// sensor2 was deleted between resolve and insert: the EXISTS guard
	// yields no row, the rest of the batch still commits.
	mock.ExpectQuery(`INSERT INTO samples`).
		WithArgs(sensor2, 45.2, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE devices SET last_seen`).
		WithArgs(deviceID, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ids, err := repo.InsertBatch(ctx, deviceID, []NewSample{
		{SensorID: sensor1, Value: 812.5},
		{SensorID: sensor2, Value: 45.2},
	}, ts)

	require.NoError(t, err)
	assert.Equal(t, []int64{101, 0}, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_InsertErrorRollsBack(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	deviceID := uuid.New().String()
	sensorID := uuid.New().String()
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO samples`).
		WithArgs(sensorID, 1.0, ts).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.InsertBatch(ctx, deviceID, []NewSample{{SensorID: sensorID, Value: 1.0}}, ts)

	assert.Error(t, err)
	var se *domain.StorageError
	assert.True(t, errors.As(err, &se))

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Range 租户范围查询测试
// ============================================

func TestRange_TenantScoped(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	deviceID := uuid.New().String()
	sensorID := uuid.New().String()
	ts := time.Now().UTC()

	rows := sqlmock.NewRows(sampleTestColumns).
		AddRow(2, sensorID, 815.0, ts, "radiation", "radiation", "W/m2", deviceID, "gateway-01", tenantID).
		AddRow(1, sensorID, 812.5, ts.Add(-time.Minute), "radiation", "radiation", "W/m2", deviceID, "gateway-01", tenantID)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, deviceID, 100).
		WillReturnRows(rows)

	out, err := repo.Range(ctx, tenantID, domain.SampleFilter{DeviceID: deviceID, Limit: 100})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, "radiation", out[0].SensorName)
	assert.Equal(t, tenantID, out[0].OrgID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRange_AdminSkipsTenantFilter(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	start := time.Now().Add(-time.Hour).UTC()
	end := time.Now().UTC()

	mock.ExpectQuery(`SELECT`).
		WithArgs(start, end, 1000).
		WillReturnRows(sqlmock.NewRows(sampleTestColumns))

	out, err := repo.Range(ctx, "", domain.SampleFilter{Start: start, End: end, Limit: 1000})

	require.NoError(t, err)
	assert.Empty(t, out)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRange_UnlimitedOmitsLimitClause(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows(sampleTestColumns))

	_, err := repo.Range(ctx, tenantID, domain.SampleFilter{Limit: -1})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// LatestByDevice 每传感器最新值测试
// ============================================

func TestLatestByDevice_Success(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	deviceID := uuid.New().String()
	ts := time.Now().UTC()

	rows := sqlmock.NewRows(sampleTestColumns).
		AddRow(10, uuid.New().String(), 812.5, ts, "radiation", "radiation", "W/m2", deviceID, "gateway-01", tenantID).
		AddRow(11, uuid.New().String(), 45.2, ts, "temperature1", "temperature", "C", deviceID, "gateway-01", tenantID)

	mock.ExpectQuery(`SELECT DISTINCT ON`).
		WithArgs(deviceID, tenantID).
		WillReturnRows(rows)

	out, err := repo.LatestByDevice(ctx, tenantID, deviceID)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "radiation", out[0].SensorName)
	assert.Equal(t, "temperature1", out[1].SensorName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestByDevice_AdminContext(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	deviceID := uuid.New().String()

	mock.ExpectQuery(`SELECT DISTINCT ON`).
		WithArgs(deviceID).
		WillReturnRows(sqlmock.NewRows(sampleTestColumns))

	out, err := repo.LatestByDevice(ctx, "", deviceID)

	require.NoError(t, err)
	assert.Empty(t, out)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Statistics 聚合测试
// ============================================

func TestStatistics_GroupedBySensor(t *testing.T) {
	db, mock, repo := setupMockSamplesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	sensor1 := uuid.New().String()
	sensor2 := uuid.New().String()

	rows := sqlmock.NewRows([]string{"sensor_id", "sensor_name", "count", "min", "max", "avg"}).
		AddRow(sensor1, "radiation", 288, 0.0, 1021.5, 433.7).
		AddRow(sensor2, "temperature1", 288, 12.1, 48.9, 27.3)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID).
		WillReturnRows(rows)

	out, err := repo.Statistics(ctx, tenantID, domain.SampleFilter{})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "radiation", out[0].SensorName)
	assert.Equal(t, int64(288), out[0].Count)
	assert.InDelta(t, 1021.5, out[0].Max, 1e-9)

	require.NoError(t, mock.ExpectationsWereMet())
}
