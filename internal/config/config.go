package config

import (
    "os"
    "strconv"
    "time"
)

// Config carries the engine settings read from the environment. Database
// and Redis connection settings stay inside pkg/database and pkg/redis
// the way the rest of the platform reads them.
type Config struct {
    Port      string
    JWTSecret string

    RadiusServerIP  string
    RadiusCoAPort   int
    RouterTimeout   time.Duration
    ConnectTimeout  time.Duration

    SweepInterval   time.Duration
    EnforceInterval time.Duration
    QueueInterval   time.Duration
    SweepBatchSize  int
    SweepWorkers    int
    EnforceLeaseTTL time.Duration
}

func Load() *Config {
    return &Config{
        Port:      getEnv("PORT", "8080"),
        JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),

        RadiusServerIP: getEnv("RADIUS_SERVER_IP", "10.0.0.2"),
        RadiusCoAPort:  getEnvInt("RADIUS_COA_PORT", 3799),
        RouterTimeout:  getEnvDuration("ROUTER_HTTP_TIMEOUT", 10*time.Second),
        ConnectTimeout: getEnvDuration("CONNECT_TIMEOUT", 5*time.Second),

        SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
        EnforceInterval: getEnvDuration("ENFORCE_INTERVAL", 30*time.Minute),
        QueueInterval:   getEnvDuration("QUEUE_INTERVAL", 30*time.Second),
        SweepBatchSize:  getEnvInt("SWEEP_BATCH_SIZE", 50),
        SweepWorkers:    getEnvInt("SWEEP_WORKERS", 10),
        EnforceLeaseTTL: getEnvDuration("ENFORCE_LEASE_TTL", 10*time.Minute),
    }
}

func getEnv(key, defaultValue string) string {
    if value := os.Getenv(key); value != "" {
        return value
    }
    return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
    if value := os.Getenv(key); value != "" {
        if n, err := strconv.Atoi(value); err == nil && n > 0 {
            return n
        }
    }
    return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
    if value := os.Getenv(key); value != "" {
        if d, err := time.ParseDuration(value); err == nil && d > 0 {
            return d
        }
    }
    return defaultValue
}
