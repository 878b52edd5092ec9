package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Telegram TelegramConfig
	Weather  WeatherConfig
	Sweep    SweepConfig
	MQTT     MQTTConfig
	Kafka    KafkaConfig
	MinIO    MinIOConfig
	CORS     CORSConfig
	SMTP     SMTPConfig
	Firebase FirebaseConfig

	// ThresholdsFile points to an optional YAML file with limits and per-device overrides
	ThresholdsFile string
}

type AppConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Driver   string // postgres or sqlite
	Path     string // sqlite file
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type AdminConfig struct {
	Username string
	Password string
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
	Timeout  time.Duration
}

type WeatherConfig struct {
	BaseURL         string
	Timeout         time.Duration
	CacheTTL        time.Duration
	DefaultLat      *float64
	DefaultLon      *float64
	OutdoorTemp     float64
	OutdoorHumidity float64
	OutdoorCO2      float64
}

type SweepConfig struct {
	Interval      time.Duration
	Concurrency   int
	ShutdownGrace time.Duration
}

type MQTTConfig struct {
	BrokerURL string
	Topic     string
	ClientID  string
	Username  string
	Password  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MinIOConfig struct {
	Endpoint   string
	PublicURL  string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	LinkExpiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AlertTo  []string
}

type FirebaseConfig struct {
	CredentialsFile string
	Topic           string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Path:     getEnv("DB_PATH", "data.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "airguard"),
			Password: getEnv("DB_PASSWORD", "airguard"),
			Name:     getEnv("DB_NAME", "airguard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getInt64("TELEGRAM_CHAT_ID", 0),
			Timeout:  getDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		Weather: WeatherConfig{
			BaseURL:         getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
			Timeout:         getDuration("WEATHER_TIMEOUT", 5*time.Second),
			CacheTTL:        getDuration("WEATHER_CACHE_TTL", 10*time.Minute),
			DefaultLat:      getOptionalFloat("DEFAULT_LATITUDE"),
			DefaultLon:      getOptionalFloat("DEFAULT_LONGITUDE"),
			OutdoorTemp:     getFloat("DEFAULT_OUTDOOR_TEMP", 10),
			OutdoorHumidity: getFloat("DEFAULT_OUTDOOR_HUMIDITY", 50),
			OutdoorCO2:      getFloat("OUTDOOR_CO2", 400),
		},
		Sweep: SweepConfig{
			Interval:      getDuration("SWEEP_INTERVAL", 60*time.Second),
			Concurrency:   int(getInt64("SWEEP_CONCURRENCY", 4)),
			ShutdownGrace: getDuration("SHUTDOWN_GRACE", 10*time.Second),
		},
		MQTT: MQTTConfig{
			BrokerURL: getEnv("MQTT_BROKER_URL", ""),
			Topic:     getEnv("MQTT_TOPIC", "airguard/+/readings"),
			ClientID:  getEnv("MQTT_CLIENT_ID", "airguard-server"),
			Username:  getEnv("MQTT_USERNAME", ""),
			Password:  getEnv("MQTT_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "airguard.measurements"),
		},
		MinIO: MinIOConfig{
			Endpoint:   getEnv("MINIO_ENDPOINT", ""),
			PublicURL:  getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:     getEnv("MINIO_BUCKET", "airguard-exports"),
			UseSSL:     getEnv("MINIO_USE_SSL", "false") == "true",
			LinkExpiry: getDuration("MINIO_LINK_EXPIRY", 24*time.Hour),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@airguard.local"),
			FromName: getEnv("SMTP_FROM_NAME", "AirGuard"),
			AlertTo:  splitList(getEnv("ALERT_EMAIL_TO", "")),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			Topic:           getEnv("FCM_TOPIC", "airguard-alerts"),
		},
		ThresholdsFile: getEnv("THRESHOLDS_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getOptionalFloat(key string) *float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
