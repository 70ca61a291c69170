package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/bus"
	"github.com/emryou/solar-log-hub/internal/decoder"
	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
	"github.com/emryou/solar-log-hub/internal/store"
)

// Reading 一条上报读数
// Raw 为 true 时 Value 携带的是寄存器原始位模式，需按传感器解码配置转换
type Reading struct {
	SensorName string  `json:"sensor_name"`
	Value      float64 `json:"value"`
	Raw        bool    `json:"raw,omitempty"`
}

// 简单变体的固定传感器名（radiation/temperature1/temperature2 三个固定字段）
const (
	SensorNameRadiation    = "radiation"
	SensorNameTemperature1 = "temperature1"
	SensorNameTemperature2 = "temperature2"
)

// AlarmChecker 阈值告警检查（由 notifier 包实现；可选，失败不影响采集）
type AlarmChecker interface {
	Check(ctx context.Context, samples []*domain.Sample)
}

// IngestService 采集管线
// 状态机：Received → Validated → Resolved → Persisted → Broadcast
// 任一校验/解析失败短路到 Rejected；批次不幂等（重复提交产生重复采样）
type IngestService struct {
	devices repository.DevicesRepo
	sensors repository.SensorsRepo
	samples repository.SamplesRepo
	bus     *bus.Bus
	cache   store.LatestCache // 可选
	alarms  AlarmChecker      // 可选

	// autoRegister：未注册设备自动建档并归入 defaultOrgID；
	// 关闭时未注册设备直接拒绝
	autoRegister bool
	defaultOrgID string

	logger *zap.Logger
}

func NewIngestService(
	devices repository.DevicesRepo,
	sensors repository.SensorsRepo,
	samples repository.SamplesRepo,
	b *bus.Bus,
	cache store.LatestCache,
	alarms AlarmChecker,
	autoRegister bool,
	defaultOrgID string,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		devices:      devices,
		sensors:      sensors,
		samples:      samples,
		bus:          b,
		cache:        cache,
		alarms:       alarms,
		autoRegister: autoRegister,
		defaultOrgID: defaultOrgID,
		logger:       logger,
	}
}

// Submit 处理一个上报批次，返回接受的采样数
// 无法解析的读数被逐条丢弃而不是整批失败（现场遥测的容错策略）
func (s *IngestService) Submit(ctx context.Context, deviceName string, readings []Reading) (int, error) {
	// Validated
	if deviceName == "" {
		return 0, &domain.ValidationError{Field: "device_name", Reason: "must not be empty"}
	}
	if len(readings) == 0 {
		return 0, &domain.ValidationError{Field: "readings", Reason: "at least one reading required"}
	}

	// Resolved: device
	dev, err := s.devices.GetDeviceByName(ctx, deviceName)
	if err != nil {
		if !domain.IsNotFound(err) {
			return 0, err
		}
		if !s.autoRegister {
			return 0, &domain.NotFoundError{Resource: "device", Key: deviceName + " (register first)"}
		}
		dev, err = s.autoRegisterDevice(ctx, deviceName)
		if err != nil {
			return 0, err
		}
	}

	// Resolved: readings（逐条解析，未知/停用的传感器静默丢弃）
	ts := time.Now().UTC()
	rows := make([]repository.NewSample, 0, len(readings))
	accepted := make([]*domain.Sample, 0, len(readings))
	for _, rd := range readings {
		sensor, cfg, err := s.sensors.ResolveSensor(ctx, dev.DeviceID, rd.SensorName)
		if err != nil {
			if domain.IsNotFound(err) {
				s.logger.Debug("dropping reading for unknown sensor",
					zap.String("device", deviceName),
					zap.String("sensor", rd.SensorName))
				continue
			}
			return 0, err
		}
		if !sensor.Active {
			s.logger.Debug("dropping reading for inactive sensor",
				zap.String("device", deviceName),
				zap.String("sensor", rd.SensorName))
			continue
		}

		value := rd.Value
		if rd.Raw {
			if cfg == nil {
				s.logger.Debug("dropping raw reading without decoding config",
					zap.String("device", deviceName),
					zap.String("sensor", rd.SensorName))
				continue
			}
			raw, ok := decoder.RawBits(rd.Value, cfg.Encoding)
			if !ok {
				s.logger.Warn("dropping raw reading outside register range",
					zap.String("sensor", rd.SensorName),
					zap.Float64("value", rd.Value))
				continue
			}
			// 配置写入时已校验过编码枚举，这里失败属于异常数据
			value, err = decoder.Decode(raw, cfg.Encoding, cfg.Scale, cfg.Offset)
			if err != nil {
				s.logger.Warn("dropping undecodable raw reading",
					zap.String("sensor", rd.SensorName),
					zap.Error(err))
				continue
			}
		}

		rows = append(rows, repository.NewSample{SensorID: sensor.SensorID, Value: value})
		accepted = append(accepted, &domain.Sample{
			SensorID:   sensor.SensorID,
			SensorName: sensor.SensorName,
			SensorType: sensor.SensorType,
			Unit:       sensor.Unit,
			DeviceID:   dev.DeviceID,
			DeviceName: dev.DeviceName,
			OrgID:      dev.OrgID,
			Value:      value,
			Ts:         ts,
		})
	}

	// Persisted: 单事务写整批 + last_seen 每批一次
	// 即使全部读数被丢弃也更新 last_seen（设备确实上报了）
	ids, err := s.samples.InsertBatch(ctx, dev.DeviceID, rows, ts)
	if err != nil {
		return 0, err
	}
	// id 为 0 表示该行在解析与写入之间被目录侧删除，整行丢弃
	persisted := accepted[:0]
	for i := range ids {
		if ids[i] == 0 {
			s.logger.Debug("dropping reading for sensor deleted mid-batch",
				zap.String("device", deviceName),
				zap.String("sensor", accepted[i].SensorName))
			continue
		}
		accepted[i].ID = ids[i]
		persisted = append(persisted, accepted[i])
	}

	// Broadcast: fire-and-forget，分发失败不回滚采集
	for _, sp := range persisted {
		s.bus.Publish(domain.Event{
			Type:    domain.EventSampleIngested,
			OrgID:   sp.OrgID,
			Payload: sp,
		})
		if s.cache != nil {
			if err := s.cache.SetLatest(ctx, sp); err != nil {
				s.logger.Warn("latest cache write failed", zap.Error(err))
			}
		}
	}
	if s.alarms != nil && len(persisted) > 0 {
		go s.alarms.Check(context.Background(), persisted)
	}

	return len(persisted), nil
}

// SubmitSimple 简单变体：radiation/temperature1/temperature2 三个固定字段，
// 值已是物理量
func (s *IngestService) SubmitSimple(ctx context.Context, deviceName string, radiation, temperature1, temperature2 float64) (int, error) {
	return s.Submit(ctx, deviceName, []Reading{
		{SensorName: SensorNameRadiation, Value: radiation},
		{SensorName: SensorNameTemperature1, Value: temperature1},
		{SensorName: SensorNameTemperature2, Value: temperature2},
	})
}

func (s *IngestService) autoRegisterDevice(ctx context.Context, deviceName string) (*domain.Device, error) {
	if s.defaultOrgID == "" {
		return nil, &domain.ConfigurationError{
			Field:  "ingest.default_org_id",
			Reason: "auto-register enabled but no default organization configured",
		}
	}
	dev := &domain.Device{
		DeviceID:    uuid.NewString(),
		OrgID:       s.defaultOrgID,
		DeviceName:  deviceName,
		Description: sql.NullString{String: "auto-registered", Valid: true},
		Active:      true,
	}
	if err := s.devices.CreateDevice(ctx, dev); err != nil {
		// 并发首报：另一个批次可能刚建好同名设备
		if domain.IsConflict(err) {
			return s.devices.GetDeviceByName(ctx, deviceName)
		}
		return nil, err
	}
	s.logger.Info("auto-registered device",
		zap.String("device", deviceName),
		zap.String("org_id", s.defaultOrgID))
	s.bus.Publish(domain.Event{
		Type:    domain.EventDeviceUpdated,
		OrgID:   dev.OrgID,
		Payload: dev.ToJSON(),
	})
	return dev, nil
}
