package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Log      LogConfig
	Forecast ForecastConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// Data source modes
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

type AppConfig struct {
	DataSource  string // postgres | file
	SalesFile   string
	CatalogFile string
	DataDir     string // Snapshot and export output
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	LatestTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket snapshots are exported to
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type LogConfig struct {
	Level string
	File  string
}

type ForecastConfig struct {
	ServiceLevel         float64
	LeadTimeDays         int
	HorizonDays          int
	HighTurnThreshold    float64
	DeadDemandThreshold  float64
	ExpiryWindowDays     int
	DefaultMinStock      int
	DefaultMaxStock      int
	Workers              int
	ExportTimeoutSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())

		if instance.App.DataSource == SourceFile {
			ensureDir(instance.App.DataDir)
		}
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "autopo")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("APP_DATA_SOURCE", SourcePostgres)
	v.SetDefault("APP_SALES_FILE", "./data/sales.csv")
	v.SetDefault("APP_CATALOG_FILE", "./data/inventory.csv")
	v.SetDefault("APP_DATA_DIR", "./data/output")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_LATEST_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "forecast-snapshots")
	v.SetDefault("STORAGE_REGION", "")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("STORAGE_PREFIX", "snapshots")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("FORECAST_SERVICE_LEVEL", 0.95)
	v.SetDefault("FORECAST_LEAD_TIME_DAYS", 7)
	v.SetDefault("FORECAST_HORIZON_DAYS", 30)
	v.SetDefault("FORECAST_HIGH_TURN_THRESHOLD", 6.0)
	v.SetDefault("FORECAST_DEAD_DEMAND_THRESHOLD", 0.01)
	v.SetDefault("FORECAST_EXPIRY_WINDOW_DAYS", 60)
	v.SetDefault("FORECAST_DEFAULT_MIN_STOCK", 0)
	v.SetDefault("FORECAST_DEFAULT_MAX_STOCK", 0)
	v.SetDefault("FORECAST_WORKERS", 4)
	v.SetDefault("FORECAST_EXPORT_TIMEOUT_SECONDS", 30)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
		},
		App: AppConfig{
			DataSource:  v.GetString("APP_DATA_SOURCE"),
			SalesFile:   v.GetString("APP_SALES_FILE"),
			CatalogFile: v.GetString("APP_CATALOG_FILE"),
			DataDir:     v.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			LatestTTLSeconds: v.GetInt("CACHE_LATEST_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Forecast: ForecastConfig{
			ServiceLevel:         v.GetFloat64("FORECAST_SERVICE_LEVEL"),
			LeadTimeDays:         v.GetInt("FORECAST_LEAD_TIME_DAYS"),
			HorizonDays:          v.GetInt("FORECAST_HORIZON_DAYS"),
			HighTurnThreshold:    v.GetFloat64("FORECAST_HIGH_TURN_THRESHOLD"),
			DeadDemandThreshold:  v.GetFloat64("FORECAST_DEAD_DEMAND_THRESHOLD"),
			ExpiryWindowDays:     v.GetInt("FORECAST_EXPIRY_WINDOW_DAYS"),
			DefaultMinStock:      v.GetInt("FORECAST_DEFAULT_MIN_STOCK"),
			DefaultMaxStock:      v.GetInt("FORECAST_DEFAULT_MAX_STOCK"),
			Workers:              v.GetInt("FORECAST_WORKERS"),
			ExportTimeoutSeconds: v.GetInt("FORECAST_EXPORT_TIMEOUT_SECONDS"),
		},
	}
}

// DSN returns the Postgres connection string, preferring DATABASE_URL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return "host=" + d.Host + " port=" + d.Port + " user=" + d.User +
		" password=" + d.Password + " dbname=" + d.DBName + " sslmode=" + d.SSLMode
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
