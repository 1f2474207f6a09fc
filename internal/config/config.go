package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Lock       LockConfig
	Midtrans   MidtransConfig
	Settlement SettlementConfig
	Auth       AuthConfig
	Tracing    TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	FrontendURL        string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	// Connection is a postgres DSN. Empty selects the in-process store.
	Connection string
}

type LockConfig struct {
	Backend string // "redis" or "memory"
	TTL     time.Duration
	Wait    time.Duration
}

type MidtransConfig struct {
	ServerKey      string
	IsProduction   bool
	GatewayTimeout time.Duration
}

type SettlementConfig struct {
	Topic          string
	ReconcileCron  string
	ReconcileStale time.Duration
	DedupTTL       time.Duration
}

type AuthConfig struct {
	JwtSecret string
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/settlement.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Lock: LockConfig{
			Backend: getEnv("LOCK_BACKEND", "redis"),
			TTL:     time.Duration(getEnvAsInt("LOCK_TTL_SECONDS", 30)) * time.Second,
			Wait:    time.Duration(getEnvAsInt("LOCK_WAIT_MS", 2000)) * time.Millisecond,
		},
		Midtrans: MidtransConfig{
			ServerKey:      getEnv("MIDTRANS_SERVER_KEY", ""),
			IsProduction:   getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			GatewayTimeout: time.Duration(getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Settlement: SettlementConfig{
			Topic:          getEnv("SETTLEMENT_TOPIC", "PAYMENT_SETTLEMENT"),
			ReconcileCron:  getEnv("RECONCILE_CRON", "*/5 * * * *"),
			ReconcileStale: time.Duration(getEnvAsInt("RECONCILE_STALE_MINUTES", 30)) * time.Minute,
			DedupTTL:       time.Duration(getEnvAsInt("SETTLEMENT_DEDUP_MINUTES", 60)) * time.Minute,
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
