// Package config loads the daemon configuration from a .env file and
// environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full daemon configuration.
type Config struct {
	// SimulationMode selects the in-memory rig instead of hardware.
	SimulationMode bool

	// DeviceID names this bed in MQTT topics and alert payloads.
	DeviceID string

	Engine  EngineConfig
	Safety  SafetyConfig
	HTTP    HTTPConfig
	Logging LoggingConfig
	Storage StorageConfig
	MQTT    MQTTConfig
	Alert   AlertConfig
}

// EngineConfig shapes the control engine.
type EngineConfig struct {
	// RotationInterval of zero disables automatic rotation; manual
	// requests stay available.
	RotationInterval time.Duration
	StepCount        int
	StepInterval     time.Duration
	TickInterval     time.Duration
	HomeOnStart      bool
	CalibrationFile  string
}

// SafetyConfig shapes the safety monitor thresholds.
type SafetyConfig struct {
	OverloadThresholdMA float64
	PresenceThreshold   float64
	ReleaseDebounce     time.Duration
}

// HTTPConfig shapes the caregiver API server.
type HTTPConfig struct {
	Addr string
}

// LoggingConfig shapes the zap logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// StorageConfig shapes audit persistence. An empty path disables it.
type StorageConfig struct {
	AuditDBPath string
}

// MQTTConfig shapes the event publisher. An empty broker disables it.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      int
}

// AlertConfig shapes the caregiver webhook. An empty URL disables it.
type AlertConfig struct {
	WebhookURL string
	MinLevel   string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	deviceID := getEnv("DEVICE_ID", "bed-01")

	return &Config{
		SimulationMode: getEnvAsBool("SIMULATION_MODE", true),
		DeviceID:       deviceID,
		Engine: EngineConfig{
			RotationInterval: time.Duration(getEnvAsInt("ROTATION_INTERVAL_MINUTES", 90)) * time.Minute,
			StepCount:        getEnvAsInt("STEP_COUNT", 30),
			StepInterval:     getEnvAsMillis("STEP_INTERVAL_MS", 300),
			TickInterval:     getEnvAsMillis("TICK_INTERVAL_MS", 1000),
			HomeOnStart:      getEnvAsBool("HOME_ON_START", true),
			CalibrationFile:  getEnv("CALIBRATION_FILE", ""),
		},
		Safety: SafetyConfig{
			OverloadThresholdMA: getEnvAsFloat("OVERLOAD_THRESHOLD_MA", 5000),
			PresenceThreshold:   getEnvAsFloat("PRESENCE_THRESHOLD", 500),
			ReleaseDebounce:     getEnvAsMillis("ESTOP_DEBOUNCE_MS", 300),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8000"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			AuditDBPath: getEnv("AUDIT_DB_PATH", "carebot.db"),
		},
		MQTT: MQTTConfig{
			Broker:   getEnv("MQTT_BROKER", ""),
			ClientID: getEnv("MQTT_CLIENT_ID", "carebot-"+deviceID),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
			QoS:      getEnvAsInt("MQTT_QOS", 1),
		},
		Alert: AlertConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
			MinLevel:   getEnv("ALERT_MIN_LEVEL", "warning"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	valueStr := getEnv(name, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}

func getEnvAsMillis(name string, defaultMillis int) time.Duration {
	return time.Duration(getEnvAsInt(name, defaultMillis)) * time.Millisecond
}
