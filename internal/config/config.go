package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Ledger      LedgerConfig
	Resale      ResaleConfig
	Idempotency IdempotencyConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type LedgerConfig struct {
	// SingleUseAdmission makes every newly created ledger reject a second
	// validation of the same ticket.
	SingleUseAdmission bool
}

type ResaleConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

type IdempotencyConfig struct {
	TTL time.Duration
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6380"
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	singleUse, err := boolEnv("LEDGER_SINGLE_USE_ADMISSION", false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateLimit, err := intEnv("RESALE_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rateLimit <= 0 {
		return nil, fmt.Errorf("%s: RESALE_RATE_LIMIT must be positive", op)
	}

	rateWindow, err := durationEnv("RESALE_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemTTL, err := durationEnv("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:      serverCfg,
		Postgres:    postgresCfg,
		Redis:       redisCfg,
		Ledger:      LedgerConfig{SingleUseAdmission: singleUse},
		Resale:      ResaleConfig{RateLimit: rateLimit, RateWindow: rateWindow},
		Idempotency: IdempotencyConfig{TTL: idemTTL},
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func boolEnv(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return v, nil
}
