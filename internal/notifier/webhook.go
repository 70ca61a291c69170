// Package notifier posts threshold-breach notifications to an external
// webhook. Delivery is best-effort and never fails ingestion.
package notifier

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
)

// 阈值配置键：alarm.threshold.<sensor_type>.max / .min
const (
	thresholdKeyPrefix = "alarm.threshold."
	thresholdMaxSuffix = ".max"
	thresholdMinSuffix = ".min"
)

// BreachNotification 发给 webhook 的负载
type BreachNotification struct {
	DeviceName string    `json:"device_name"`
	SensorName string    `json:"sensor_name"`
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	Limit      float64   `json:"limit"`
	Kind       string    `json:"kind"` // "max" / "min"
	Ts         time.Time `json:"ts"`
}

// WebhookNotifier 按传感器类型的阈值检查 + webhook 推送
type WebhookNotifier struct {
	httpClient *resty.Client
	settings   repository.SettingsRepo
	logger     *zap.Logger
}

func NewWebhookNotifier(webhookURL string, settings repository.SettingsRepo, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetBaseURL(webhookURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		settings:   settings,
		logger:     logger,
	}
}

// Check 对整批采样做阈值检查，越限则推送
// 在采集事务提交后异步调用；任何失败只记日志
func (n *WebhookNotifier) Check(ctx context.Context, samples []*domain.Sample) {
	for _, sp := range samples {
		if sp.SensorType == "" {
			continue
		}
		if limit, ok := n.threshold(ctx, sp.SensorType, thresholdMaxSuffix); ok && sp.Value > limit {
			n.notify(ctx, sp, limit, "max")
		}
		if limit, ok := n.threshold(ctx, sp.SensorType, thresholdMinSuffix); ok && sp.Value < limit {
			n.notify(ctx, sp, limit, "min")
		}
	}
}

// threshold 读取 alarm.threshold.<type>.<suffix>；未配置或非数值视为无阈值
func (n *WebhookNotifier) threshold(ctx context.Context, sensorType, suffix string) (float64, bool) {
	setting, err := n.settings.GetSetting(ctx, thresholdKeyPrefix+sensorType+suffix)
	if err != nil {
		return 0, false
	}
	limit, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		return 0, false
	}
	return limit, true
}

func (n *WebhookNotifier) notify(ctx context.Context, sp *domain.Sample, limit float64, kind string) {
	payload := BreachNotification{
		DeviceName: sp.DeviceName,
		SensorName: sp.SensorName,
		SensorType: sp.SensorType,
		Value:      sp.Value,
		Limit:      limit,
		Kind:       kind,
		Ts:         sp.Ts,
	}
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post("")
	if err != nil {
		n.logger.Warn("alarm webhook delivery failed",
			zap.String("sensor", sp.SensorName),
			zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("alarm webhook returned error status",
			zap.String("sensor", sp.SensorName),
			zap.Int("status", resp.StatusCode()))
		return
	}
	n.logger.Info("alarm webhook delivered",
		zap.String("device", sp.DeviceName),
		zap.String("sensor", sp.SensorName),
		zap.Float64("value", sp.Value),
		zap.Float64("limit", limit),
		zap.String("kind", kind))
}
