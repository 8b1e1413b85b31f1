package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `env:"PORT,default=8080"` // サーバーポート

	DatabaseURL      string `env:"DATABASE_URL"` // あればPOSTGRES_*より優先
	PostgresUser     string `env:"POSTGRES_USER,default=postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,default=postgres"`
	PostgresDB       string `env:"POSTGRES_DB,default=storefront"`
	PostgresHost     string `env:"POSTGRES_HOST,default=localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT,default=5432"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE,default=disable"`

	JWTSecret string        `env:"JWT_SECRET,required"` // JWT署名シークレット
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=24h"`

	GoEnv    string `env:"GO_ENV,default=dev"` // dev/prod
	AppURL   string `env:"APP_URL,default=http://localhost:3000"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// 空なら無効
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	KafkaBrokers    string `env:"KAFKA_BROKERS"` // カンマ区切り
	KafkaOrderTopic string `env:"KAFKA_ORDER_TOPIC,default=orders.created"`

	// /authのIPごとのレート制限（req/s）
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT,default=5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST,default=10"`

	MaintenanceCron string `env:"MAINTENANCE_CRON,default=@every 1h"`
}

// Loadは.env（あれば）を読んでから環境変数をデコードする
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	//必須チェック
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv != "dev" && cfg.GoEnv != "prod" && cfg.GoEnv != "test" {
		return Config{}, fmt.Errorf("GO_ENV must be dev, prod or test")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.AuthRateLimit <= 0 || cfg.AuthRateBurst <= 0 {
		return Config{}, fmt.Errorf("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// DATABASE_URLが無ければPOSTGRES_*から組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
