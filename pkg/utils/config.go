package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Session      SessionConfig
	Email        EmailConfig
	Payment      PaymentConfig
	Booking      BookingConfig
	Redis        RedisConfig
	Notification NotificationConfig
}

type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Debug    bool
	LogPath  string
	Timezone string
	// CORSOrigins empty means any origin
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type SessionConfig struct {
	ExpiryHours int
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type PaymentConfig struct {
	BaseURL         string
	ClientID        string
	APIKey          string
	ChecksumKey     string
	ReturnURL       string
	CancelURL       string
	MinAmount       float64
	AmountTolerance float64
	ExpiryMinutes   int
	TimeoutSeconds  int
}

type BookingConfig struct {
	HousekeepingBufferMinutes int
	HintHorizonDays           int
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	DedupeTTLHour int
}

type NotificationConfig struct {
	Driver       string
	Workers      int
	QueueSize    int
	MaxRetries   int
	KafkaBrokers []string
	KafkaTopic   string
}

const EnvProduction = "production"

// IsProduction reports whether test-only payment paths must stay closed.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

func (c BookingConfig) HousekeepingBuffer() time.Duration {
	return time.Duration(c.HousekeepingBufferMinutes) * time.Minute
}

func (c PaymentConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

func (c PaymentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c RedisConfig) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLHour) * time.Hour
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "homestay-booking")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "Asia/Ho_Chi_Minh")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("PAYMENT_MIN_AMOUNT", 2000)
	viper.SetDefault("PAYMENT_AMOUNT_TOLERANCE", 1)
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", 10)
	viper.SetDefault("HOUSEKEEPING_BUFFER_MINUTES", 120)
	viper.SetDefault("AVAILABILITY_HINT_DAYS", 30)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("WEBHOOK_DEDUPE_TTL_HOURS", 24)
	viper.SetDefault("NOTIFY_DRIVER", "log")
	viper.SetDefault("NOTIFY_WORKERS", 2)
	viper.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	viper.SetDefault("NOTIFY_MAX_RETRIES", 3)
	viper.SetDefault("KAFKA_TOPIC", "booking.notifications")

	// .env is optional, the environment always wins
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:     viper.GetString("APP_NAME"),
			Env:      viper.GetString("APP_ENV"),
			Port:     viper.GetString("PORT"),
			Debug:    viper.GetBool("DEBUG"),
			LogPath:  viper.GetString("LOG_PATH"),
			Timezone: viper.GetString("APP_TIMEZONE"),

			CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Payment: PaymentConfig{
			BaseURL:         viper.GetString("PAYMENT_BASE_URL"),
			ClientID:        viper.GetString("PAYMENT_CLIENT_ID"),
			APIKey:          viper.GetString("PAYMENT_API_KEY"),
			ChecksumKey:     viper.GetString("PAYMENT_CHECKSUM_KEY"),
			ReturnURL:       viper.GetString("PAYMENT_RETURN_URL"),
			CancelURL:       viper.GetString("PAYMENT_CANCEL_URL"),
			MinAmount:       viper.GetFloat64("PAYMENT_MIN_AMOUNT"),
			AmountTolerance: viper.GetFloat64("PAYMENT_AMOUNT_TOLERANCE"),
			ExpiryMinutes:   viper.GetInt("PAYMENT_EXPIRY_MINUTES"),
			TimeoutSeconds:  viper.GetInt("PAYMENT_TIMEOUT_SECONDS"),
		},
		Booking: BookingConfig{
			HousekeepingBufferMinutes: viper.GetInt("HOUSEKEEPING_BUFFER_MINUTES"),
			HintHorizonDays:           viper.GetInt("AVAILABILITY_HINT_DAYS"),
		},
		Redis: RedisConfig{
			Addr:          viper.GetString("REDIS_ADDR"),
			Password:      viper.GetString("REDIS_PASSWORD"),
			DB:            viper.GetInt("REDIS_DB"),
			DedupeTTLHour: viper.GetInt("WEBHOOK_DEDUPE_TTL_HOURS"),
		},
		Notification: NotificationConfig{
			Driver:       viper.GetString("NOTIFY_DRIVER"),
			Workers:      viper.GetInt("NOTIFY_WORKERS"),
			QueueSize:    viper.GetInt("NOTIFY_QUEUE_SIZE"),
			MaxRetries:   viper.GetInt("NOTIFY_MAX_RETRIES"),
			KafkaBrokers: splitList(viper.GetString("KAFKA_BROKERS")),
			KafkaTopic:   viper.GetString("KAFKA_TOPIC"),
		},
	}

	// QR codes live shorter outside production so test payments expire quickly
	if config.Payment.ExpiryMinutes <= 0 {
		config.Payment.ExpiryMinutes = 5
		if config.IsProduction() {
			config.Payment.ExpiryMinutes = 15
		}
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
