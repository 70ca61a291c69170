package domain

import (
	"database/sql"
	"time"
)

// Device 设备领域模型（对应 devices 表）
// device_name 全局唯一：现场网关用它自报身份
type Device struct {
	DeviceID    string         `db:"device_id"`
	OrgID       string         `db:"org_id"` // NOT NULL
	DeviceName  string         `db:"device_name"`
	Address     sql.NullString `db:"address"`     // nullable
	Description sql.NullString `db:"description"` // nullable
	LastSeen    sql.NullTime   `db:"last_seen"`   // 每个接受的批次更新一次
	Active      bool           `db:"active"`
	CreatedAt   time.Time      `db:"created_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (d *Device) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":   d.DeviceID,
		"org_id":      d.OrgID,
		"device_name": d.DeviceName,
		"active":      d.Active,
		"created_at":  d.CreatedAt,
	}
	if d.Address.Valid {
		m["address"] = d.Address.String
	}
	if d.Description.Valid {
		m["description"] = d.Description.String
	}
	if d.LastSeen.Valid {
		m["last_seen"] = d.LastSeen.Time
	} else {
		m["last_seen"] = nil
	}
	return m
}
