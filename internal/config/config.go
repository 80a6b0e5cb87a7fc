package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	HTTPAddr        string
	DBDSN           string
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	OllamaBaseURL   string
	OllamaModel     string
	FallbackTimeout time.Duration
	IntentThreshold float64
	DeviceThreshold float64
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		HTTPAddr:        getenvDefault("DOMO_HTTP_ADDR", ":9020"),
		DBDSN:           os.Getenv("DB_DSN"),
		MQTTBrokerURL:   getenvDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:    getenvDefault("DOMO_MQTT_CLIENT_ID", "domo-server"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "domo"),
		OllamaBaseURL:   strings.TrimRight(getenvDefault("OLLAMA_BASE_URL", "http://localhost:11434"), "/"),
		OllamaModel:     getenvDefault("OLLAMA_MODEL", "llama3.2"),
		FallbackTimeout: time.Duration(getenvIntDefault("FALLBACK_TIMEOUT_SECONDS", 10)) * time.Second,
		IntentThreshold: getenvFloatDefault("INTENT_CONFIDENCE_THRESHOLD", 0.8),
		DeviceThreshold: getenvFloatDefault("DEVICE_CONFIDENCE_THRESHOLD", 0.7),
	}

	if cfg.DBDSN == "" {
		return ServerConfig{}, fmt.Errorf("DB_DSN is required")
	}
	if cfg.IntentThreshold <= 0 || cfg.IntentThreshold > 1 {
		return ServerConfig{}, fmt.Errorf("INTENT_CONFIDENCE_THRESHOLD must be in (0, 1]")
	}
	if cfg.DeviceThreshold <= 0 || cfg.DeviceThreshold > 1 {
		return ServerConfig{}, fmt.Errorf("DEVICE_CONFIDENCE_THRESHOLD must be in (0, 1]")
	}

	return cfg, nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvFloatDefault(key string, val float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return val
	}
	return f
}
