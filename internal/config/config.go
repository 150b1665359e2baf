package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
)

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
	// Enabled is false when no brokers are configured; events are then dropped.
	Enabled bool
}

// RedisConfig holds the idempotency cache connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// CouponConfig holds engine tunables.
type CouponConfig struct {
	IdempotencyTTL  time.Duration
	ExpirySweepSpec string
	TxMaxRetries    uint64
}

// ServiceConfig holds all configuration for the coupon service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	MigrationsDir string
	DBConfig      database.Config
	JWTConfig     JWTConfig
	KafkaConfig   KafkaConfig
	RedisConfig   RedisConfig
	CouponConfig  CouponConfig
}

// Load reads configuration from the environment, falling back to an
// optional coupon.env file in the working directory.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetConfigName("coupon")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("DB_DRIVER", database.DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "finedine_coupons")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "file:finedine.db?_busy_timeout=5000")
	v.SetDefault("JWT_TOKEN_TTL", "15m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "finedine-")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("EXPIRY_SWEEP_SPEC", "@every 1m")
	v.SetDefault("TX_MAX_RETRIES", 3)
}

func fromViper(v *viper.Viper) *ServiceConfig {
	brokers := splitList(v.GetString("KAFKA_BROKERS"))
	redisAddr := v.GetString("REDIS_ADDR")

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:          port,
		AppEnv:        v.GetString("APP_ENV"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		DBConfig: database.Config{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
		},
		JWTConfig: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			TokenTTL: v.GetDuration("JWT_TOKEN_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     brokers,
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
			Enabled:     len(brokers) > 0,
		},
		RedisConfig: RedisConfig{
			Addr:     redisAddr,
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Enabled:  redisAddr != "",
		},
		CouponConfig: CouponConfig{
			IdempotencyTTL:  v.GetDuration("IDEMPOTENCY_TTL"),
			ExpirySweepSpec: v.GetString("EXPIRY_SWEEP_SPEC"),
			TxMaxRetries:    uint64(v.GetInt("TX_MAX_RETRIES")),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
