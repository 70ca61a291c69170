package repository

import (
	"context"
	"time"

	"github.com/emryou/solar-log-hub/internal/domain"
)

// OrganizationsRepo 租户仓库接口
type OrganizationsRepo interface {
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]*domain.Organization, error)
	SetOrganizationActive(ctx context.Context, orgID string, active bool) error
	DeleteOrganization(ctx context.Context, orgID string) error
}

// UsersRepo 用户仓库接口
type UsersRepo interface {
	CreateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context, orgID string) ([]*domain.User, error)
}

// DevicesRepo 设备仓库接口
type DevicesRepo interface {
	CreateDevice(ctx context.Context, dev *domain.Device) error
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	// GetDeviceByName 按现场网关自报的唯一名称查找
	GetDeviceByName(ctx context.Context, name string) (*domain.Device, error)
	ListDevices(ctx context.Context, orgID string) ([]*domain.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error
}

// SensorsRepo 传感器与解码配置仓库接口
type SensorsRepo interface {
	CreateSensor(ctx context.Context, s *domain.Sensor) error
	GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error)
	// ResolveSensor 采集热路径：按 (device_id, sensor_name) 查找传感器及其解码配置
	// 解码配置可能不存在（返回 nil）
	ResolveSensor(ctx context.Context, deviceID, sensorName string) (*domain.Sensor, *domain.DecodingConfig, error)
	ListSensors(ctx context.Context, deviceID string) ([]*domain.Sensor, error)
	UpdateSensor(ctx context.Context, s *domain.Sensor) error
	DeleteSensor(ctx context.Context, sensorID string) error
	// UpsertDecodingConfig 替换式写入（每个传感器最多一条配置）
	UpsertDecodingConfig(ctx context.Context, c *domain.DecodingConfig) error
	GetDecodingConfig(ctx context.Context, sensorID string) (*domain.DecodingConfig, error)
	DeleteDecodingConfig(ctx context.Context, sensorID string) error
}

// NewSample 待插入的单条采样
type NewSample struct {
	SensorID string
	Value    float64
}

// SamplesRepo 采样仓库接口
type SamplesRepo interface {
	// InsertBatch 在一个事务内写入整批采样并更新设备 last_seen（每批一次）
	// 返回的 id 切片与 rows 逐位对齐，id 为 0 表示该行的传感器已不存在、未写入
	InsertBatch(ctx context.Context, deviceID string, rows []NewSample, ts time.Time) ([]int64, error)
	// Range 历史范围查询，ts 降序；tenantID 为空表示不做租户过滤（admin）
	Range(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.Sample, error)
	// LatestByDevice 设备下每个活跃传感器的最新一条采样
	LatestByDevice(ctx context.Context, tenantID, deviceID string) ([]*domain.Sample, error)
	// Statistics count/min/max/avg；未指定单个传感器时按传感器分组
	Statistics(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.SensorStats, error)
}

// SettingsRepo 全局配置仓库接口
type SettingsRepo interface {
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	ListSettings(ctx context.Context) ([]*domain.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) error
	// SeedDefaults 写入缺失的默认配置（已存在的键不覆盖）
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}
