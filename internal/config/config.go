package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	JobTTL   time.Duration `mapstructure:"job_ttl"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type ExtractConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Staging   string `mapstructure:"staging"` // local | s3
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Prefix  string `mapstructure:"s3_prefix"`
	S3Region  string `mapstructure:"s3_region"`
}

type SchedulerConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	ServerPort  string          `mapstructure:"server_port"`
	JWTSecret   string          `mapstructure:"jwt_secret"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Temporal    TemporalConfig  `mapstructure:"temporal"`
	Extract     ExtractConfig   `mapstructure:"extract"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Redis.Addr == "" {
		config.Redis.Addr = "localhost:6379"
	}
	if config.Redis.JobTTL == 0 {
		config.Redis.JobTTL = 7 * 24 * time.Hour
	}

	if config.Extract.OutputDir == "" {
		config.Extract.OutputDir = "data/output"
	}
	if config.Extract.Staging == "" {
		config.Extract.Staging = "local"
	}
	if config.Temporal.HostPort == "" {
		config.Temporal.HostPort = "localhost:7233"
	}
	if config.Temporal.Namespace == "" {
		config.Temporal.Namespace = "default"
	}

	if config.Scheduler.CheckInterval == 0 {
		config.Scheduler.CheckInterval = 60 * time.Second
	}

	return &config
}
