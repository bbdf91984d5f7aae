package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds all configuration values. LoadConfig reads an optional TOML
// file first and lets the environment override it.
type Config struct {
	AppPort  string `toml:"port"`
	LogLevel string `toml:"log_level"`

	DBDriver   string `toml:"db_driver"`
	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	SQLitePath string `toml:"sqlite_path"`

	MinioEndpoint  string `toml:"minio_endpoint"`
	MinioAccessKey string `toml:"minio_access_key"`
	MinioSecretKey string `toml:"minio_secret_key"`
	MinioBucket    string `toml:"minio_bucket"`
	MinioSSL       bool   `toml:"minio_ssl"`

	// Redis is optional. Without a host large assets are cached on disk
	// under CacheDir, or not at all when CacheDir is empty.
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	CacheDir  string `toml:"cache_dir"`

	CacheTTL         time.Duration `toml:"-"`
	MemoryCacheBytes int64         `toml:"memory_cache_bytes"`
	LargeAssetBytes  int64         `toml:"large_asset_bytes"`
	FileCacheBytes   int64         `toml:"file_cache_bytes"`

	FetchTimeout  time.Duration `toml:"-"`
	FrameInterval time.Duration `toml:"-"`
	AssimpPath    string        `toml:"assimp_path"`
}

// durations are spelled as Go duration strings ("30s") in the TOML file.
type fileDurations struct {
	CacheTTL      string `toml:"cache_ttl"`
	FetchTimeout  string `toml:"fetch_timeout"`
	FrameInterval string `toml:"frame_interval"`
}

func defaults() *Config {
	return &Config{
		AppPort:          "8080",
		LogLevel:         "info",
		DBDriver:         "postgres",
		DBPort:           "5432",
		SQLitePath:       "preview.db",
		RedisPort:        "6379",
		CacheTTL:         10 * time.Minute,
		MemoryCacheBytes: 256 << 20,
		LargeAssetBytes:  8 << 20,
		FileCacheBytes:   2 << 30,
		FetchTimeout:     30 * time.Second,
		AssimpPath:       "assimp",
	}
}

// LoadConfig loads configuration from CONFIG_FILE (if set) and the
// environment.
func LoadConfig() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := loadEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	var d fileDurations
	if err := toml.Unmarshal(data, &d); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	for _, f := range []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{d.CacheTTL, &cfg.CacheTTL, "cache_ttl"},
		{d.FetchTimeout, &cfg.FetchTimeout, "fetch_timeout"},
		{d.FrameInterval, &cfg.FrameInterval, "frame_interval"},
	} {
		if f.raw == "" {
			continue
		}
		v, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid %s value: %v", f.key, err)
		}
		*f.dst = v
	}
	return nil
}

func loadEnv(cfg *Config) error {
	setString(&cfg.AppPort, "PREVIEW_PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DBHost, "DB_HOST")
	setString(&cfg.DBPort, "DB_PORT")
	setString(&cfg.DBUser, "DB_USER")
	setString(&cfg.DBPassword, "DB_PASSWORD")
	setString(&cfg.DBName, "DB_NAME")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	setString(&cfg.RedisHost, "REDIS_HOST")
	setString(&cfg.RedisPort, "REDIS_PORT")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.AssimpPath, "ASSIMP_PATH")

	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		cfg.MinioSSL = val
	}
	for _, f := range []struct {
		env string
		dst *int64
	}{
		{"CACHE_MEMORY_BYTES", &cfg.MemoryCacheBytes},
		{"CACHE_LARGE_ASSET_BYTES", &cfg.LargeAssetBytes},
		{"CACHE_FILE_BYTES", &cfg.FileCacheBytes},
	} {
		if raw := os.Getenv(f.env); raw != "" {
			val, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s value: %v", f.env, err)
			}
			*f.dst = val
		}
	}
	for _, f := range []struct {
		env string
		dst *time.Duration
	}{
		{"CACHE_TTL", &cfg.CacheTTL},
		{"FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"SESSION_FRAME_INTERVAL", &cfg.FrameInterval},
	} {
		if raw := os.Getenv(f.env); raw != "" {
			val, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid %s value: %v", f.env, err)
			}
			*f.dst = val
		}
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks that the required settings for the chosen backends are present.
func (cfg *Config) Validate() error {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
			return fmt.Errorf("database configuration is incomplete")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
		return fmt.Errorf("minio configuration is incomplete")
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	return nil
}

// RedisEnabled reports whether a Redis host was configured.
func (cfg *Config) RedisEnabled() bool { return cfg.RedisHost != "" }

// ConnectDatabase opens a GORM connection for the configured driver.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = gormlite.Open(cfg.SQLitePath)
	default:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
