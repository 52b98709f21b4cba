// Package config loads the runner configuration (logging, recording and
// geo-referencing) from vds.cfg.json through the global viper instance.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up by Load.
const FileName = "vds.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the file-backed SQLite recorder.
type SQLiteConfig struct {
	Path      string `json:"path" mapstructure:"path"`
	BatchSize int    `json:"batchSize" mapstructure:"batchSize"`
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Username  string `json:"username" mapstructure:"username"`
	Password  string `json:"password" mapstructure:"password"`
	Database  string `json:"database" mapstructure:"database"`
	BatchSize int    `json:"batchSize" mapstructure:"batchSize"`
}

// DSN renders the connection string for the postgres driver.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB settings. When the server cannot be reached
// points go to a gzipped line-protocol file at BackupPath instead.
type InfluxConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL is the server base URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// WebSocketConfig holds the streaming endpoint settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the telemetry recorder.
type StorageConfig struct {
	Type        string          `json:"type" mapstructure:"type"` // none, memory, sqlite, postgres, influx, websocket
	RecordEvery int             `json:"recordEvery" mapstructure:"recordEvery"`
	Memory      MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite      SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres    PostgresConfig  `json:"postgres" mapstructure:"postgres"`
	Influx      InfluxConfig    `json:"influx" mapstructure:"influx"`
	WebSocket   WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// GraylogConfig holds the optional GELF log sink.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// LoggingConfig holds log level and sinks.
type LoggingConfig struct {
	Level   string        `json:"logLevel" mapstructure:"logLevel"`
	Dir     string        `json:"logsDir" mapstructure:"logsDir"`
	Graylog GraylogConfig `json:"graylog" mapstructure:"graylog"`
}

// GeoConfig anchors the local metric frame to a WGS84 origin for exports.
type GeoConfig struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	OriginLat float64 `json:"originLat" mapstructure:"originLat"`
	OriginLon float64 `json:"originLon" mapstructure:"originLon"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./vdslogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.recordEvery", 1)
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./vds_runs.db")
	viper.SetDefault("storage.sqlite.batchSize", 500)
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "vds")
	viper.SetDefault("storage.postgres.batchSize", 2000)
	viper.SetDefault("storage.influx.host", "localhost")
	viper.SetDefault("storage.influx.port", "8086")
	viper.SetDefault("storage.influx.protocol", "http")
	viper.SetDefault("storage.influx.token", "supersecrettoken")
	viper.SetDefault("storage.influx.org", "vds")
	viper.SetDefault("storage.influx.bucket", "vehicle_telemetry")
	viper.SetDefault("storage.influx.backupPath", "./vds_influx_backup.lp.gz")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("geo.enabled", false)
	viper.SetDefault("geo.originLat", 0.0)
	viper.SetDefault("geo.originLon", 0.0)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file cannot be read.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// sections decodes every key so nested defaults merge with the file leaf by
// leaf.
type sections struct {
	Storage StorageConfig `mapstructure:"storage"`
	Geo     GeoConfig     `mapstructure:"geo"`
}

func decode() sections {
	var s sections
	_ = viper.Unmarshal(&s)
	return s
}

// GetStorageConfig decodes the storage section.
func GetStorageConfig() StorageConfig {
	c := decode().Storage
	if c.RecordEvery < 1 {
		c.RecordEvery = 1
	}
	return c
}

// GetLoggingConfig decodes the log level and sinks.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: viper.GetString("logLevel"),
		Dir:   viper.GetString("logsDir"),
		Graylog: GraylogConfig{
			Enabled: viper.GetBool("graylog.enabled"),
			Address: viper.GetString("graylog.address"),
		},
	}
}

// GetGeoConfig decodes the geo-referencing origin.
func GetGeoConfig() GeoConfig {
	return decode().Geo
}
