package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Inventory behaviour
	Inventory InventoryConfig

	// Event stream
	Kafka KafkaConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	Enabled  bool
	PoolSize int

	// Default TTL of the in-process cache fallback
	CacheTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	JWTExpiresIn     time.Duration
	RefreshExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	HoldRequests    int           `json:"hold_requests"`
	AdminRequests   int           `json:"admin_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// InventoryConfig tunes hold arbitration and background jobs
type InventoryConfig struct {
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	RetryDeadline      time.Duration
	SweepInterval      time.Duration
	TransitionInterval time.Duration
	PromotionInterval  time.Duration
	SweepBatchSize     int
	CalendarCacheTTL   time.Duration
	FewLeftRatio       float64
	PromotionLockTTL   time.Duration
	HoldTTLFile        string

	// HoldTTLs overrides the default hold type timeouts, keyed by hold type
	HoldTTLs map[string]time.Duration
}

// KafkaConfig holds the inventory event stream settings
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "tripstock_db"),
			User:     getEnv("DB_USER", "tripstock_user"),
			Password: getEnv("DB_PASSWORD", "tripstock_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
			CacheTTL: getDurationEnv("REDIS_CACHE_TTL", time.Minute),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn:     getDurationEnvSeconds("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshExpiresIn: getDurationEnvSeconds("JWT_REFRESH_EXPIRES_IN", 24*time.Hour),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			HoldRequests:    getIntEnv("RATE_LIMIT_HOLD_REQUESTS", 30),
			AdminRequests:   getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 0),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Inventory
		Inventory: InventoryConfig{
			RetryAttempts:      getIntEnv("HOLD_RETRY_ATTEMPTS", 5),
			RetryBaseDelay:     getDurationEnv("HOLD_RETRY_BASE_DELAY", 5*time.Millisecond),
			RetryDeadline:      getDurationEnv("HOLD_RETRY_DEADLINE", 2*time.Second),
			SweepInterval:      getDurationEnv("HOLD_SWEEP_INTERVAL", 30*time.Second),
			TransitionInterval: getDurationEnv("CAPACITY_TRANSITION_INTERVAL", time.Minute),
			PromotionInterval:  getDurationEnv("WAITLIST_PROMOTION_INTERVAL", time.Minute),
			SweepBatchSize:     getIntEnv("HOLD_SWEEP_BATCH_SIZE", 200),
			CalendarCacheTTL:   getDurationEnv("CALENDAR_CACHE_TTL", 30*time.Second),
			FewLeftRatio:       getFloatEnv("FEW_LEFT_RATIO", 0.20),
			PromotionLockTTL:   getDurationEnv("WAITLIST_LOCK_TTL", 10*time.Second),
			HoldTTLFile:        getEnv("HOLD_TTL_FILE", ""),
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_INVENTORY_TOPIC", "inventory-events"),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// LoadHoldTTLs reads the HOLD_TTL_FILE overrides into the inventory config.
// A broken override file is an error rather than a silent fallback to defaults.
func (c *Config) LoadHoldTTLs() error {
	if c.Inventory.HoldTTLFile == "" {
		return nil
	}
	ttls, err := LoadHoldTTLFile(c.Inventory.HoldTTLFile)
	if err != nil {
		return err
	}
	c.Inventory.HoldTTLs = ttls
	return nil
}

type holdTTLFile struct {
	HoldTTLs map[string]string `yaml:"hold_ttls"`
}

// LoadHoldTTLFile reads hold type timeouts from a YAML file of the form
//
//	hold_ttls:
//	  CART: 15m
//	  PAYMENT_PENDING: 30m
func LoadHoldTTLFile(path string) (map[string]time.Duration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hold TTL file: %w", err)
	}
	return ParseHoldTTLs(raw)
}

// ParseHoldTTLs decodes the YAML hold TTL document
func ParseHoldTTLs(raw []byte) (map[string]time.Duration, error) {
	var doc holdTTLFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse hold TTL file: %w", err)
	}

	ttls := make(map[string]time.Duration, len(doc.HoldTTLs))
	for holdType, value := range doc.HoldTTLs {
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL %q for hold type %s: %w", value, holdType, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("TTL for hold type %s must be positive", holdType)
		}
		ttls[strings.ToUpper(holdType)] = d
	}
	return ttls, nil
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
