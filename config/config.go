package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
	// per client IP on booking writes
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres or memory
	URL         string `yaml:"url"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	// flights scheduled at startup when the memory driver is used or the
	// table is empty
	Seed []SeedFlight `yaml:"seed"`
}

type SeedFlight struct {
	FlightNo       string  `yaml:"flight_no"`
	Origin         string  `yaml:"origin"`
	Destination    string  `yaml:"destination"`
	DepartsInHours int     `yaml:"departs_in_hours"`
	DurationMins   int     `yaml:"duration_minutes"`
	BaseFare       float64 `yaml:"base_fare"`
	TotalSeats     int     `yaml:"total_seats"`
	AircraftType   string  `yaml:"aircraft_type"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	CancellationCutoff time.Duration `yaml:"cancellation_cutoff"`
	PNRMaxAttempts     int           `yaml:"pnr_max_attempts"`
	// UseRedisLock switches the per-flight lock from in-process to Redis,
	// required when several app instances share one database.
	UseRedisLock    bool          `yaml:"use_redis_lock"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	FlightsCacheTTL time.Duration `yaml:"flights_cache_ttl"`
}

// DefaultPaymentSuccessRate applies when payment.success_rate is absent.
const DefaultPaymentSuccessRate = 0.9

type PaymentConfig struct {
	// SuccessRate is nil when unset so an explicit 0 (always decline) survives.
	SuccessRate *float64      `yaml:"success_rate"`
	Latency     time.Duration `yaml:"latency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate returns the configured approval probability or the default.
func (p PaymentConfig) Rate() float64 {
	if p.SuccessRate == nil {
		return DefaultPaymentSuccessRate
	}
	return *p.SuccessRate
}

type WorkerConfig struct {
	FareSnapshotInterval time.Duration `yaml:"fare_snapshot_interval"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or console
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LoadConfig reads the YAML file at path, then applies a .env file from the
// working directory (if any), environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		c.HTTP.Address = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimitRPS == 0 {
		c.HTTP.RateLimitRPS = 5
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.BookingTopic == "" {
		c.Kafka.BookingTopic = "booking-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "fareledger-worker"
	}
	if c.Booking.CancellationCutoff == 0 {
		c.Booking.CancellationCutoff = 2 * time.Hour
	}
	if c.Booking.PNRMaxAttempts == 0 {
		c.Booking.PNRMaxAttempts = 10
	}
	if c.Booking.LockTTL == 0 {
		c.Booking.LockTTL = 10 * time.Second
	}
	if c.Booking.FlightsCacheTTL == 0 {
		c.Booking.FlightsCacheTTL = 30 * time.Second
	}
	if c.Payment.Latency == 0 {
		c.Payment.Latency = 100 * time.Millisecond
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 2 * time.Second
	}
	if c.Worker.FareSnapshotInterval == 0 {
		c.Worker.FareSnapshotInterval = 15 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if r := c.Payment.Rate(); r < 0 || r > 1 {
		return fmt.Errorf("config: payment.success_rate %v outside [0, 1]", r)
	}
	if c.Worker.FareSnapshotInterval <= 0 {
		return fmt.Errorf("config: worker.fare_snapshot_interval %s must be positive", c.Worker.FareSnapshotInterval)
	}
	if c.Booking.UseRedisLock && c.Redis.Addr == "" {
		return errors.New("config: booking.use_redis_lock requires redis.addr")
	}
	// the distributed lock must outlive the payment window
	if c.Booking.UseRedisLock && c.Booking.LockTTL <= c.Payment.Timeout {
		return fmt.Errorf("config: booking.lock_ttl %s must exceed payment.timeout %s", c.Booking.LockTTL, c.Payment.Timeout)
	}
	for _, s := range c.Database.Seed {
		if s.FlightNo == "" || s.TotalSeats <= 0 || s.BaseFare <= 0 {
			return fmt.Errorf("config: invalid seed flight %q", s.FlightNo)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
