package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/bus"
	"github.com/emryou/solar-log-hub/internal/domain"
	"github.com/emryou/solar-log-hub/internal/repository"
)

// SettingsService 全局键值配置（租户无关）
type SettingsService struct {
	settings repository.SettingsRepo
	bus      *bus.Bus
	logger   *zap.Logger
}

func NewSettingsService(settings repository.SettingsRepo, b *bus.Bus, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, bus: b, logger: logger}
}

// Seed 首次启动写入默认配置（已存在的键不覆盖）
func (s *SettingsService) Seed(ctx context.Context) error {
	return s.settings.SeedDefaults(ctx, domain.DefaultSettings)
}

func (s *SettingsService) Get(ctx context.Context, key string) (*domain.Setting, error) {
	return s.settings.GetSetting(ctx, key)
}

func (s *SettingsService) List(ctx context.Context) ([]*domain.Setting, error) {
	return s.settings.ListSettings(ctx)
}

// Update 写入并向订阅者广播 setting_updated
func (s *SettingsService) Update(ctx context.Context, key, value string) error {
	if key == "" {
		return &domain.ValidationError{Field: "key", Reason: "must not be empty"}
	}
	if err := s.settings.UpsertSetting(ctx, key, value); err != nil {
		return err
	}
	s.bus.Publish(domain.Event{
		Type:    domain.EventSettingUpdated,
		Payload: map[string]any{"key": key, "value": value},
	})
	return nil
}
