package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type OutputFormat string

const (
	OutputPNG  OutputFormat = "png"
	OutputWebP OutputFormat = "webp"
)

type Config struct {
	Port          int
	Env           string // "production" or "development"
	DataDir       string
	PublicBaseURL string

	Provider        string // removebg | clipdrop | mock
	RemoveBgAPIKey  string
	ClipdropAPIKey  string
	ProviderTimeout time.Duration

	MaxUploadSizeMB int
	OutputFormat    OutputFormat
	OutputQuality   int
	MaxDimension    int
	Retention       time.Duration
	Workers         int
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "7891"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUploadSizeMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB: %w", err)
	}

	quality, err := strconv.Atoi(getEnv("OUTPUT_QUALITY", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTPUT_QUALITY: %w", err)
	}
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("OUTPUT_QUALITY must be within 0-100, got %d", quality)
	}

	maxDimension, err := strconv.Atoi(getEnv("MAX_IMAGE_DIMENSION", "4096"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_IMAGE_DIMENSION: %w", err)
	}

	retentionHours, err := strconv.Atoi(getEnv("RETENTION_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_HOURS: %w", err)
	}

	providerTimeout, err := strconv.Atoi(getEnv("PROVIDER_TIMEOUT_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT_SECONDS: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKERS: %w", err)
	}

	format := OutputFormat(getEnv("OUTPUT_FORMAT", "png"))
	switch format {
	case OutputPNG, OutputWebP:
	default:
		return nil, fmt.Errorf("invalid OUTPUT_FORMAT: %q (expected png or webp)", format)
	}

	provider := getEnv("REMOVAL_PROVIDER", "mock")
	switch provider {
	case "removebg", "clipdrop", "mock":
	default:
		return nil, fmt.Errorf("invalid REMOVAL_PROVIDER: %q (expected removebg, clipdrop or mock)", provider)
	}

	return &Config{
		Port:            port,
		Env:             getEnv("ENV", "development"),
		DataDir:         getEnv("DATA_DIR", "/data"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		Provider:        provider,
		RemoveBgAPIKey:  os.Getenv("REMOVEBG_API_KEY"),
		ClipdropAPIKey:  os.Getenv("CLIPDROP_API_KEY"),
		ProviderTimeout: time.Duration(providerTimeout) * time.Second,
		MaxUploadSizeMB: maxUploadSizeMB,
		OutputFormat:    format,
		OutputQuality:   quality,
		MaxDimension:    maxDimension,
		Retention:       time.Duration(retentionHours) * time.Hour,
		Workers:         workers,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
