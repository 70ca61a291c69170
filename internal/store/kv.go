package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/emryou/solar-log-hub/internal/domain"
)

var ErrMiss = errors.New("cache miss")

// latestTTL 最新值缓存过期时间（设备掉线后缓存自然失效）
const latestTTL = 24 * time.Hour

// LatestCache 每个传感器最新采样的缓存（读多写少的看板热路径）
// 目录侧删除/停用传感器时必须同步失效，否则级联删除后仍可查到
type LatestCache interface {
	SetLatest(ctx context.Context, sample *domain.Sample) error
	GetLatestByDevice(ctx context.Context, deviceID string) ([]*domain.Sample, error)
	DeleteBySensor(ctx context.Context, deviceID, sensorID string) error
	DeleteByDevice(ctx context.Context, deviceID string) error
}

// RedisLatestCache Redis 实现
// key: latest:<device_id>:<sensor_id>，value: JSON 序列化的采样
type RedisLatestCache struct {
	c *redis.Client
}

func NewRedisLatestCache(c *redis.Client) *RedisLatestCache {
	return &RedisLatestCache{c: c}
}

var _ LatestCache = (*RedisLatestCache)(nil)

func latestKey(deviceID, sensorID string) string {
	return fmt.Sprintf("latest:%s:%s", deviceID, sensorID)
}

// SetLatest 写入最新值；缓存中已有更新的采样时保持不变
// （并发批次的广播顺序不保证与入库时间戳一致）
func (r *RedisLatestCache) SetLatest(ctx context.Context, sample *domain.Sample) error {
	key := latestKey(sample.DeviceID, sample.SensorID)
	if cur, err := r.c.Get(ctx, key).Result(); err == nil {
		var prev domain.Sample
		if json.Unmarshal([]byte(cur), &prev) == nil && prev.Ts.After(sample.Ts) {
			return nil
		}
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return r.c.Set(ctx, key, string(data), latestTTL).Err()
}

// GetLatestByDevice 扫描设备下的全部最新值；缓存未命中返回 ErrMiss
func (r *RedisLatestCache) GetLatestByDevice(ctx context.Context, deviceID string) ([]*domain.Sample, error) {
	keys, err := r.scanKeys(ctx, latestKey(deviceID, "*"))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrMiss
	}

	var out []*domain.Sample
	for _, key := range keys {
		val, err := r.c.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue // expired between SCAN and GET
			}
			return nil, err
		}
		var sp domain.Sample
		if err := json.Unmarshal([]byte(val), &sp); err != nil {
			continue // stale format, fall through to the next key
		}
		out = append(out, &sp)
	}
	if len(out) == 0 {
		return nil, ErrMiss
	}
	return out, nil
}

// DeleteBySensor 失效单个传感器的最新值（删除/停用传感器时调用）
func (r *RedisLatestCache) DeleteBySensor(ctx context.Context, deviceID, sensorID string) error {
	return r.c.Del(ctx, latestKey(deviceID, sensorID)).Err()
}

// DeleteByDevice 失效设备下全部最新值（删除设备时调用）
func (r *RedisLatestCache) DeleteByDevice(ctx context.Context, deviceID string) error {
	keys, err := r.scanKeys(ctx, latestKey(deviceID, "*"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.c.Del(ctx, keys...).Err()
}

func (r *RedisLatestCache) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		k, next, err := r.c.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
