package domain

import "time"

// Sensor 传感器领域模型（对应 sensors 表）
// (device_id, sensor_name) 唯一；生命周期与解码配置独立
type Sensor struct {
	SensorID   string    `db:"sensor_id"`
	DeviceID   string    `db:"device_id"`
	SensorName string    `db:"sensor_name"`
	SensorType string    `db:"sensor_type"` // 自由分类，如 "radiation"、"temperature"
	Unit       string    `db:"unit"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *Sensor) ToJSON() map[string]any {
	return map[string]any{
		"sensor_id":   s.SensorID,
		"device_id":   s.DeviceID,
		"sensor_name": s.SensorName,
		"sensor_type": s.SensorType,
		"unit":        s.Unit,
		"active":      s.Active,
		"created_at":  s.CreatedAt,
	}
}

// DecodingConfig 解码配置领域模型（对应 sensor_decoding_configs 表，与 sensor 1:1）
// physical = reinterpret(raw) * scale + offset
type DecodingConfig struct {
	ConfigID        string    `db:"config_id"`
	SensorID        string    `db:"sensor_id"` // UNIQUE
	RegisterAddress int       `db:"register_address"`
	RegisterKind    string    `db:"register_kind"` // holding/input/coil/discrete
	Encoding        string    `db:"encoding"`      // signed16/unsigned16/signed32/unsigned32/float32
	Scale           float64   `db:"scale"`
	Offset          float64   `db:"value_offset"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (c *DecodingConfig) ToJSON() map[string]any {
	return map[string]any{
		"config_id":        c.ConfigID,
		"sensor_id":        c.SensorID,
		"register_address": c.RegisterAddress,
		"register_kind":    c.RegisterKind,
		"encoding":         c.Encoding,
		"scale":            c.Scale,
		"offset":           c.Offset,
		"updated_at":       c.UpdatedAt,
	}
}
