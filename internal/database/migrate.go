package database

import (
	"database/sql"
	"fmt"
)

// schemaDDL 启动时应用的表结构（幂等：CREATE ... IF NOT EXISTS）
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		org_id         UUID PRIMARY KEY,
		org_name       VARCHAR(255) NOT NULL UNIQUE,
		contact_email  VARCHAR(255),
		contact_phone  VARCHAR(50),
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id      UUID PRIMARY KEY,
		org_id       UUID NOT NULL REFERENCES organizations(org_id) ON DELETE CASCADE,
		account      VARCHAR(255) NOT NULL,
		role         VARCHAR(20) NOT NULL DEFAULT 'viewer',
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (org_id, account)
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		device_id    UUID PRIMARY KEY,
		org_id       UUID NOT NULL REFERENCES organizations(org_id) ON DELETE CASCADE,
		device_name  VARCHAR(255) NOT NULL UNIQUE,
		address      VARCHAR(255),
		description  TEXT,
		last_seen    TIMESTAMPTZ,
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		sensor_id    UUID PRIMARY KEY,
		device_id    UUID NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
		sensor_name  VARCHAR(255) NOT NULL,
		sensor_type  VARCHAR(100) NOT NULL DEFAULT '',
		unit         VARCHAR(50) NOT NULL DEFAULT '',
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (device_id, sensor_name)
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_decoding_configs (
		config_id         UUID PRIMARY KEY,
		sensor_id         UUID NOT NULL UNIQUE REFERENCES sensors(sensor_id) ON DELETE CASCADE,
		register_address  INTEGER NOT NULL,
		register_kind     VARCHAR(20) NOT NULL,
		encoding          VARCHAR(20) NOT NULL,
		scale             DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		value_offset      DOUBLE PRECISION NOT NULL DEFAULT 0.0,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS samples (
		id         BIGSERIAL PRIMARY KEY,
		sensor_id  UUID NOT NULL REFERENCES sensors(sensor_id) ON DELETE CASCADE,
		value      DOUBLE PRECISION NOT NULL,
		ts         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_sensor_ts ON samples (sensor_id, ts DESC)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key        VARCHAR(255) PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate 应用表结构（启动时调用）
func Migrate(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
