package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory if one exists.
// Variables already set in the process environment take precedence.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("[Env] No .env file found, using system environment variables")
	}
}

// lookup returns the trimmed value of key. Blank values count as unset.
func lookup(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// GetEnv returns the trimmed value of key or "".
func GetEnv(key string) string {
	value, _ := lookup(key)
	return value
}

func GetEnvString(key string, defaultValue string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return defaultValue
}

func GetEnvNumeric(key string, defaultValue int) float64 {
	value, ok := lookup(key)
	if !ok {
		return float64(defaultValue)
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("[Env] Ignoring non-numeric value", "key", key, "value", value)
		return float64(defaultValue)
	}
	return n
}

// GetEnvPositiveInt reads an integer that must be at least 1. Missing,
// malformed and non-positive values fall back to defaultValue.
func GetEnvPositiveInt(key string, defaultValue int) int {
	v := int(GetEnvNumeric(key, defaultValue))
	if v < 1 {
		logger.Warn("[Env] Ignoring non-positive value", "key", key, "value", v)
		return defaultValue
	}
	return v
}

// GetEnvDuration reads a time.ParseDuration string such as "90s". A bare
// number is taken as seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger.Warn("[Env] Ignoring invalid duration", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
