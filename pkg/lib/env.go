package lib

import (
	"os"
	"strconv"

	"geo-tools/pkg/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. With no arguments it loads ./.env.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.Debug("no .env file loaded, using system environment", "err", err)
	}
}

// GetEnvString returns defaultValue when the variable is unset or empty.
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvFloat returns defaultValue when the variable is unset, empty or
// malformed.
func GetEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("ignoring malformed number", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("ignoring malformed integer", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func GetEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
