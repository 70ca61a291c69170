package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/bus"
	"github.com/emryou/solar-log-hub/internal/config"
	"github.com/emryou/solar-log-hub/internal/consumer"
	"github.com/emryou/solar-log-hub/internal/database"
	httpapi "github.com/emryou/solar-log-hub/internal/http"
	"github.com/emryou/solar-log-hub/internal/logger"
	"github.com/emryou/solar-log-hub/internal/mqtt"
	"github.com/emryou/solar-log-hub/internal/notifier"
	"github.com/emryou/solar-log-hub/internal/repository"
	"github.com/emryou/solar-log-hub/internal/service"
	"github.com/emryou/solar-log-hub/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "solar-log-hub")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	// Repositories
	orgsRepo := repository.NewPostgresOrganizationsRepo(db)
	usersRepo := repository.NewPostgresUsersRepo(db)
	devicesRepo := repository.NewPostgresDevicesRepo(db)
	sensorsRepo := repository.NewPostgresSensorsRepo(db)
	samplesRepo := repository.NewPostgresSamplesRepo(db)
	settingsRepo := repository.NewPostgresSettingsRepo(db)

	// 可选 Redis 最新值缓存
	var latestCache store.LatestCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, latest cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			latestCache = store.NewRedisLatestCache(redisClient)
		}
	}

	// 实时分发总线（进程内注册表，随进程生命周期）
	liveBus := bus.New(log)
	defer liveBus.Close()

	// 可选阈值告警 webhook
	var alarms service.AlarmChecker
	if cfg.Alarm.WebhookURL != "" {
		alarms = notifier.NewWebhookNotifier(cfg.Alarm.WebhookURL, settingsRepo, log)
	}

	// Services
	ingestSvc := service.NewIngestService(devicesRepo, sensorsRepo, samplesRepo,
		liveBus, latestCache, alarms, cfg.Ingest.AutoRegister, cfg.Ingest.DefaultOrgID, log)
	catalogSvc := service.NewCatalogService(devicesRepo, sensorsRepo, liveBus, latestCache, log)
	querySvc := service.NewQueryService(samplesRepo, devicesRepo, latestCache, log)
	settingsSvc := service.NewSettingsService(settingsRepo, liveBus, log)

	if err := settingsSvc.Seed(context.Background()); err != nil {
		log.Fatal("failed to seed settings", zap.Error(err))
	}

	// HTTP
	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterTelemetryRoutes(httpapi.NewTelemetryHandler(ingestSvc, log))
	router.RegisterQueryRoutes(httpapi.NewQueryHandler(querySvc, log))
	router.RegisterLiveRoutes(httpapi.NewLiveHandler(liveBus, log))
	router.RegisterAdminRoutes(
		httpapi.NewOrganizationsHandler(orgsRepo, usersRepo, log),
		httpapi.NewCatalogHandler(catalogSvc, log),
		httpapi.NewSettingsHandler(settingsSvc, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 可选 MQTT 上行
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			log.Fatal("failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		mqttConsumer = consumer.NewMQTTConsumer(&cfg.MQTT, mqttClient, ingestSvc, log)
		go func() {
			if err := mqttConsumer.Start(ctx); err != nil {
				log.Error("MQTT consumer stopped with error", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttConsumer != nil {
		_ = mqttConsumer.Stop(shutdownCtx)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
