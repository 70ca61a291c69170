package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg := Load()
	require.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "solarlog", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "telemetry/up/+", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.False(t, cfg.Ingest.AutoRegister)
	assert.Equal(t, "", cfg.Ingest.DefaultOrgID)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_USER", "test-user")
	os.Setenv("DB_PASSWORD", "test-password")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("MQTT_BROKER", "tcp://test-broker:1883")
	os.Setenv("INGEST_AUTO_REGISTER", "true")
	os.Setenv("INGEST_DEFAULT_ORG_ID", "org-default")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-user", cfg.Database.User)
	assert.Equal(t, "test-password", cfg.Database.Password)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://test-broker:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.Ingest.AutoRegister)
	assert.Equal(t, "org-default", cfg.Ingest.DefaultOrgID)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db-host",
		Port:     5433,
		User:     "app",
		Password: "secret",
		Database: "solarlog",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db-host port=5433 user=app password=secret dbname=solarlog sslmode=require",
		db.GetDSN())
}
