package domain

import "time"

// Sample 采样领域模型（对应 samples 表）
// 追加写入，不可变；时间戳由服务端在入库时分配
type Sample struct {
	ID       int64     `db:"id"`
	SensorID string    `db:"sensor_id"`
	Value    float64   `db:"value"`
	Ts       time.Time `db:"ts"`

	// 关联数据（通过 JOIN 获取，用于查询/导出/广播）
	SensorName string `db:"sensor_name"`
	SensorType string `db:"sensor_type"`
	Unit       string `db:"unit"`
	DeviceID   string `db:"device_id"`
	DeviceName string `db:"device_name"`
	OrgID      string `db:"org_id"`
}

func (s *Sample) ToJSON() map[string]any {
	return map[string]any{
		"id":          s.ID,
		"sensor_id":   s.SensorID,
		"sensor_name": s.SensorName,
		"sensor_type": s.SensorType,
		"unit":        s.Unit,
		"device_id":   s.DeviceID,
		"device_name": s.DeviceName,
		"value":       s.Value,
		"ts":          s.Ts,
	}
}

// SampleFilter 历史查询过滤条件；零值字段视为不限制
type SampleFilter struct {
	DeviceID string
	SensorID string
	Start    time.Time
	End      time.Time
	// Limit <= 0 表示不限制（仅导出使用）
	Limit int
}

// SensorStats 按传感器聚合的统计结果
type SensorStats struct {
	SensorID   string  `db:"sensor_id"`
	SensorName string  `db:"sensor_name"`
	Count      int64   `db:"count"`
	Min        float64 `db:"min"`
	Max        float64 `db:"max"`
	Avg        float64 `db:"avg"`
}
