package domain

import "time"

// Setting 全局键值配置（对应 settings 表，租户无关）
// 首次启动写入默认值，之后由管理操作修改
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// 预置配置键
const (
	SettingIngestInterval = "ingest.interval_seconds" // 期望的上报周期（仅用于活性提示，不做硬校验）
	SettingRetentionDays  = "retention.days"
)

// DefaultSettings 首次启动时种子化的配置
var DefaultSettings = map[string]string{
	SettingIngestInterval: "300",
	SettingRetentionDays:  "365",
}

func (s *Setting) ToJSON() map[string]any {
	return map[string]any{
		"key":        s.Key,
		"value":      s.Value,
		"updated_at": s.UpdatedAt,
	}
}
