// Package config reads binary defaults from the environment and an optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures defaults for the command line tools. Flags override every field.
type Config struct {
	OutputFormat      string
	Range             string
	Timezone          string
	AssociationWindow time.Duration
	FitnessDays       int
	FatigueDays       int
	Workload          string
	IncludeSamples    bool
	Overwrite         bool
	LogLevel          string
}

// Load reads an optional .env file and then the environment. A missing .env
// is not an error; a malformed one is.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv reads environment variables into Config, applying defaults.
func FromEnv() Config {
	return Config{
		OutputFormat:      strings.ToLower(getEnv("HEALTH_OUTPUT_FORMAT", "parquet")),
		Range:             getEnv("HEALTH_RANGE", "all"),
		Timezone:          getEnv("HEALTH_TIMEZONE", ""),
		AssociationWindow: getDurationEnv("HEALTH_ASSOCIATION_WINDOW", 120*time.Second),
		FitnessDays:       getIntEnv("HEALTH_FITNESS_DAYS", 42),
		FatigueDays:       getIntEnv("HEALTH_FATIGUE_DAYS", 7),
		Workload:          getEnv("HEALTH_WORKLOAD", "distance"),
		IncludeSamples:    getBoolEnv("HEALTH_INCLUDE_SAMPLES", false),
		Overwrite:         getBoolEnv("HEALTH_OVERWRITE", true),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves Timezone. Empty keeps each sample's recorded offset.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
