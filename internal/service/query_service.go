package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
	"github.com/emryou/solar-log-hub/internal/store"
)

// defaultRangeLimit 范围查询默认上限（导出不限制）
const defaultRangeLimit = 1000

// QueryService 租户范围内的历史查询
// tenantID 为空表示 admin 上下文，不做过滤
// 越权的过滤条件返回空结果而不是鉴权错误（避免泄露资源存在性）
type QueryService struct {
	samples repository.SamplesRepo
	devices repository.DevicesRepo
	cache   store.LatestCache // 可选：latest 查询的快路径
	logger  *zap.Logger
}

func NewQueryService(samples repository.SamplesRepo, devices repository.DevicesRepo, cache store.LatestCache, logger *zap.Logger) *QueryService {
	return &QueryService{samples: samples, devices: devices, cache: cache, logger: logger}
}

// Latest 设备下每个活跃传感器的最新一条采样
func (s *QueryService) Latest(ctx context.Context, tenantID, deviceID string) ([]*domain.Sample, error) {
	// 设备存在性与租户归属先于缓存检查：已删除或越权直接空结果
	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		if domain.IsNotFound(err) {
			return []*domain.Sample{}, nil
		}
		return nil, err
	}
	if tenantID != "" && dev.OrgID != tenantID {
		return []*domain.Sample{}, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.GetLatestByDevice(ctx, deviceID); err == nil {
			return cached, nil
		} else if err != store.ErrMiss {
			s.logger.Warn("latest cache read failed, falling back to DB", zap.Error(err))
		}
	}
	return s.samples.LatestByDevice(ctx, tenantID, deviceID)
}

// Range 历史范围查询，ts 降序；缺省或非法 limit 一律回退 1000
func (s *QueryService) Range(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.Sample, error) {
	// 负数 limit 只允许 RangeUnbounded 内部使用
	if f.Limit <= 0 {
		f.Limit = defaultRangeLimit
	}
	return s.samples.Range(ctx, tenantID, f)
}

// RangeUnbounded 无上限范围查询（仅导出使用）
func (s *QueryService) RangeUnbounded(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.Sample, error) {
	f.Limit = -1
	return s.samples.Range(ctx, tenantID, f)
}

// Statistics count/min/max/avg；未指定单个传感器时按传感器分组
func (s *QueryService) Statistics(ctx context.Context, tenantID string, f domain.SampleFilter) ([]*domain.SensorStats, error) {
	return s.samples.Statistics(ctx, tenantID, f)
}
