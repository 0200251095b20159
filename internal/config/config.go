package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Input files.
	TriggerValuesPath   string
	AdjustedResultsPath string
	ProvincesPath       string
	ProvinceNameField   string
	MapDefinitionsPath  string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Snapshot publishing to Kafka.
	SnapshotEnabled    bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	snapshotEnabled, err := parseBool("SNAPSHOT_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TriggerValuesPath:   sharedcfg.EnvOrDefault("TRIGGER_VALUES_PATH", "nuevos_valores_gatillo.csv"),
		AdjustedResultsPath: sharedcfg.EnvOrDefault("ADJUSTED_RESULTS_PATH", "resultados_ajustados.csv"),
		ProvincesPath:       sharedcfg.EnvOrDefault("PROVINCES_PATH", "georef-spain-provincia-millesime.shp"),
		ProvinceNameField:   sharedcfg.EnvOrDefault("PROVINCE_NAME_FIELD", "prov_name"),
		MapDefinitionsPath:  os.Getenv("MAP_DEFINITIONS_PATH"),
		HTTPAddr:            sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:            strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout:     shutdownTimeout,
		SnapshotEnabled:     snapshotEnabled,
		KafkaBrokers:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic:  sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "climate-map-snapshots"),
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return nil, errors.New("invalid LOG_LEVEL: must be debug, info, warn or error")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, errors.New("invalid LOG_FORMAT: must be json or text")
	}
	if cfg.SnapshotEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("SNAPSHOT_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("invalid " + key + ": must be true or false")
	}
	return v, nil
}
