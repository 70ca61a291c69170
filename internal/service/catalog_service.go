package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/bus"
	"github.com/emryou/solar-log-hub/internal/decoder"
	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
	"github.com/emryou/solar-log-hub/internal/store"
)

// CatalogService 设备与传感器目录管理
// 设备归属租户；传感器归属设备；解码配置与传感器 1:1
type CatalogService struct {
	devices repository.DevicesRepo
	sensors repository.SensorsRepo
	bus     *bus.Bus
	cache   store.LatestCache // 可选：删除/停用时失效最新值缓存
	logger  *zap.Logger
}

func NewCatalogService(devices repository.DevicesRepo, sensors repository.SensorsRepo, b *bus.Bus, cache store.LatestCache, logger *zap.Logger) *CatalogService {
	return &CatalogService{devices: devices, sensors: sensors, bus: b, cache: cache, logger: logger}
}

// invalidateSensor 缓存失效失败只记日志：缓存有 TTL，数据库已是权威状态
func (s *CatalogService) invalidateSensor(ctx context.Context, deviceID, sensorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBySensor(ctx, deviceID, sensorID); err != nil {
		s.logger.Warn("latest cache invalidation failed",
			zap.String("device_id", deviceID), zap.String("sensor_id", sensorID), zap.Error(err))
	}
}

func (s *CatalogService) invalidateDevice(ctx context.Context, deviceID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByDevice(ctx, deviceID); err != nil {
		s.logger.Warn("latest cache invalidation failed",
			zap.String("device_id", deviceID), zap.Error(err))
	}
}

// CreateDevice 显式建档（区别于采集侧的自动注册）
func (s *CatalogService) CreateDevice(ctx context.Context, orgID, name, address, description string) (*domain.Device, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "device_name", Reason: "must not be empty"}
	}
	if orgID == "" {
		return nil, &domain.ValidationError{Field: "org_id", Reason: "must not be empty"}
	}
	dev := &domain.Device{
		DeviceID:    uuid.NewString(),
		OrgID:       orgID,
		DeviceName:  name,
		Address:     sql.NullString{String: address, Valid: address != ""},
		Description: sql.NullString{String: description, Valid: description != ""},
		Active:      true,
	}
	if err := s.devices.CreateDevice(ctx, dev); err != nil {
		return nil, err
	}
	s.bus.Publish(domain.Event{
		Type:    domain.EventDeviceUpdated,
		OrgID:   dev.OrgID,
		Payload: dev.ToJSON(),
	})
	return dev, nil
}

func (s *CatalogService) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.devices.GetDevice(ctx, deviceID)
}

func (s *CatalogService) ListDevices(ctx context.Context, orgID string) ([]*domain.Device, error) {
	return s.devices.ListDevices(ctx, orgID)
}

// DeleteDevice 级联删除传感器、解码配置与历史采样
func (s *CatalogService) DeleteDevice(ctx context.Context, deviceID string) error {
	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := s.devices.DeleteDevice(ctx, deviceID); err != nil {
		return err
	}
	s.invalidateDevice(ctx, deviceID)
	s.bus.Publish(domain.Event{
		Type:    domain.EventDeviceUpdated,
		OrgID:   dev.OrgID,
		Payload: map[string]any{"device_id": deviceID, "deleted": true},
	})
	return nil
}

// CreateSensor (device_id, sensor_name) 唯一；设备不存在返回 NotFoundError
func (s *CatalogService) CreateSensor(ctx context.Context, deviceID, name, sensorType, unit string) (*domain.Sensor, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "sensor_name", Reason: "must not be empty"}
	}
	if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	sensor := &domain.Sensor{
		SensorID:   uuid.NewString(),
		DeviceID:   deviceID,
		SensorName: name,
		SensorType: sensorType,
		Unit:       unit,
		Active:     true,
	}
	if err := s.sensors.CreateSensor(ctx, sensor); err != nil {
		return nil, err
	}
	return sensor, nil
}

func (s *CatalogService) GetSensor(ctx context.Context, sensorID string) (*domain.Sensor, error) {
	return s.sensors.GetSensor(ctx, sensorID)
}

func (s *CatalogService) ListSensors(ctx context.Context, deviceID string) ([]*domain.Sensor, error) {
	return s.sensors.ListSensors(ctx, deviceID)
}

func (s *CatalogService) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor.SensorName == "" {
		return &domain.ValidationError{Field: "sensor_name", Reason: "must not be empty"}
	}
	if err := s.sensors.UpdateSensor(ctx, sensor); err != nil {
		return err
	}
	// 停用的传感器不再可查，最新值缓存同步失效
	if !sensor.Active {
		s.invalidateSensor(ctx, sensor.DeviceID, sensor.SensorID)
	}
	return nil
}

// DeleteSensor 历史采样随传感器身份一起删除
func (s *CatalogService) DeleteSensor(ctx context.Context, sensorID string) error {
	sensor, err := s.sensors.GetSensor(ctx, sensorID)
	if err != nil {
		return err
	}
	if err := s.sensors.DeleteSensor(ctx, sensorID); err != nil {
		return err
	}
	s.invalidateSensor(ctx, sensor.DeviceID, sensor.SensorID)
	return nil
}

// SetDecodingConfig 替换式写入；枚举在这里（配置时）校验，采集路径不再校验
func (s *CatalogService) SetDecodingConfig(ctx context.Context, sensorID string, registerAddress int, registerKind, encoding string, scale, offset float64) (*domain.DecodingConfig, error) {
	if !decoder.ValidRegisterKind(registerKind) {
		return nil, &domain.ConfigurationError{Field: "register_kind", Reason: "unknown register kind " + registerKind}
	}
	if !decoder.ValidEncoding(encoding) {
		return nil, &domain.ConfigurationError{Field: "encoding", Reason: "unknown encoding " + encoding}
	}
	if registerAddress < 0 {
		return nil, &domain.ConfigurationError{Field: "register_address", Reason: "must not be negative"}
	}
	if _, err := s.sensors.GetSensor(ctx, sensorID); err != nil {
		return nil, err
	}
	cfg := &domain.DecodingConfig{
		ConfigID:        uuid.NewString(),
		SensorID:        sensorID,
		RegisterAddress: registerAddress,
		RegisterKind:    registerKind,
		Encoding:        encoding,
		Scale:           scale,
		Offset:          offset,
	}
	if err := s.sensors.UpsertDecodingConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *CatalogService) GetDecodingConfig(ctx context.Context, sensorID string) (*domain.DecodingConfig, error) {
	return s.sensors.GetDecodingConfig(ctx, sensorID)
}

func (s *CatalogService) DeleteDecodingConfig(ctx context.Context, sensorID string) error {
	return s.sensors.DeleteDecodingConfig(ctx, sensorID)
}
