package config

import (
	"os"
	"strconv"

	"github.com/momentum-app/momentum-api/internal/constants"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	OpenAIAPIKey  string
	GinMode       string
	ListenAddr    string

	// Recurrence expansion caps. Policy knobs, not invariants; the hard
	// MaxOccurrenceCap ceiling still applies on top of these.
	DailyOccurrenceCap  int
	WeeklyOccurrenceCap int
}

func Load() *Config {
	return &Config{
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "momentum"),
		DBPassword:    getEnv("DB_PASSWORD", "momentum"),
		DBName:        getEnv("DB_NAME", "momentum"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		GinMode:       getEnv("GIN_MODE", "debug"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),

		DailyOccurrenceCap:  getEnvInt("DAILY_OCCURRENCE_CAP", constants.DefaultDailyOccurrenceCap),
		WeeklyOccurrenceCap: getEnvInt("WEEKLY_OCCURRENCE_CAP", constants.DefaultWeeklyOccurrenceCap),
	}
}

// RedisAddr returns the host:port pair for the Redis connection.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
