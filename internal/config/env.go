package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables
type Environment struct {
	Environment EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath  string          `env:"CONFIG_PATH"`
	AppSecret   string          `env:"APP_SECRET"`
}

// LoadEnv loads the environment variables
func LoadEnv() *Environment {
	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.TrimSpace(envStr)
	envStr = strings.ToLower(envStr)
	envType := EnvironmentType(envStr)

	// Validate and default to development if invalid
	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment: envType,
		ConfigPath:  getEnv("CONFIG_PATH", "config.yaml"),
		AppSecret:   getEnv("APP_SECRET", ""),
	}
}

// SecretKey validates and returns the application secret.
// The secret signs and encrypts every issued credential, so it must be at
// least 32 bytes. In development a missing secret falls back to a fixed
// throwaway value so the server can boot without setup.
func (e *Environment) SecretKey() ([]byte, error) {
	secret := e.AppSecret
	if secret == "" {
		if e.Environment == EnvironmentProduction {
			return nil, fmt.Errorf("APP_SECRET is required in production environment")
		}
		secret = "authgate-dev-secret-do-not-use-in-prod"
	}

	if len(secret) < 32 {
		return nil, fmt.Errorf("APP_SECRET must be at least 32 bytes, got %d", len(secret))
	}

	return []byte(secret), nil
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
