package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/config"
	"github.com/emryou/solar-log-hub/internal/mqtt"
	"github.com/emryou/solar-log-hub/internal/service"
)

// MQTTConsumer 遥测 MQTT 上行消费者
// 现场网关发布到 telemetry/up/<device_name>，负载与 HTTP 富变体一致
type MQTTConsumer struct {
	config     *config.MQTTConfig
	mqttClient *mqtt.Client
	ingest     *service.IngestService
	logger     *zap.Logger
}

// uplinkMessage MQTT 批次负载
// device_name 缺省时以主题后缀为准（主题格式 telemetry/up/<device_name>）
type uplinkMessage struct {
	DeviceName string            `json:"device_name,omitempty"`
	Readings   []service.Reading `json:"readings"`
}

func NewMQTTConsumer(cfg *config.MQTTConfig, mqttClient *mqtt.Client, ingest *service.IngestService, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		ingest:     ingest,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.Topic
	if topic == "" {
		return fmt.Errorf("telemetry MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", topic))

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if c.config.Topic != "" {
		if err := c.mqttClient.Unsubscribe(c.config.Topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理一条上行消息
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var msg uplinkMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Error("Failed to unmarshal telemetry MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	deviceName := msg.DeviceName
	if deviceName == "" {
		deviceName = deviceNameFromTopic(topic)
	}

	accepted, err := c.ingest.Submit(context.Background(), deviceName, msg.Readings)
	if err != nil {
		// 采集失败记录日志即可；重试由现场设备负责
		c.logger.Warn("MQTT telemetry batch rejected",
			zap.String("device", deviceName),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("MQTT telemetry batch ingested",
		zap.String("device", deviceName),
		zap.Int("accepted", accepted),
	)
	return nil
}

// deviceNameFromTopic telemetry/up/<device_name> 的最后一段
func deviceNameFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}
