package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/credhub/internal/auth"
	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	ErrUnknownHasher = errors.New("unknown PASSWORD_HASHER")
	ErrUnknownStore  = errors.New("unknown STORE_DRIVER")
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	DBURL       string

	JWTSecret  string
	SessionTTL time.Duration

	PasswordHasher string
	BcryptCost     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserCacheTTL  time.Duration

	OTLPEndpoint       string
	TraceSampleRatio   float64
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", EnvDev),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: getEnv("STORE_DRIVER", StorePostgres),
		DBURL:       buildDBURL(),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_SECONDS", 3600)) * time.Second,

		PasswordHasher: getEnv("PASSWORD_HASHER", HasherArgon2id),
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		UserCacheTTL:  time.Duration(getEnvInt("USER_CACHE_TTL_SECONDS", 300)) * time.Second,

		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio:   getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
	}
}

// Validate checks the settings that must be right before the server starts.
func (c Config) Validate() error {
	if len(c.JWTSecret) < auth.MinSecretBytes {
		return fmt.Errorf("JWT_SECRET: %w", auth.ErrWeakSecret)
	}

	switch c.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHasher, c.PasswordHasher)
	}

	switch c.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.StoreDriver)
	}

	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_SECONDS must be positive")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProd || c.Env == "production"
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "credhub")
	pass := getEnv("DB_PASSWORD", "credhub")
	name := getEnv("DB_NAME", "credhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
