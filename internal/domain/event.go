package domain

// 实时分发事件类型
const (
	EventSampleIngested = "sample_ingested"
	EventDeviceUpdated  = "device_updated"
	EventSettingUpdated = "setting_updated"
)

// Event 实时分发总线上的事件
// Type 作为判别标签，订阅方无需额外查询即可区分负载
// OrgID 用于订阅侧的租户过滤（admin 订阅可见全部）
type Event struct {
	Type    string `json:"type"`
	OrgID   string `json:"org_id,omitempty"`
	Payload any    `json:"payload"`
}
