// Package removal wraps the external background-segmentation providers behind
// a single capability. Provider selection happens once at construction; the
// mock is just another variant, not an exceptional code path.
package removal

import (
	"fmt"
	"net/http"

	"github.com/bnema/backdrop/config"
	"github.com/bnema/backdrop/internal/infrastructure/logger"
	"github.com/bnema/backdrop/internal/port"
)

const (
	removeBgEndpoint = "https://api.remove.bg/v1.0/removebg"
	clipdropEndpoint = "https://clipdrop-api.co/remove-background/v1"
)

// New selects a provider from the configuration. In production mode a real
// provider without a credential is a hard configuration error; in development
// the mock quietly substitutes so the pipeline keeps working offline.
func New(cfg *config.Config) (port.BackgroundRemover, error) {
	httpc := &http.Client{Timeout: cfg.ProviderTimeout}

	switch cfg.Provider {
	case "removebg":
		if cfg.RemoveBgAPIKey == "" {
			if cfg.IsProduction() {
				return nil, fmt.Errorf("REMOVEBG_API_KEY is required for provider removebg in production")
			}
			logger.Warn.Printf("removebg credential missing, falling back to mock remover")
			return NewMock(), nil
		}
		return &Client{
			name:      "removebg",
			endpoint:  removeBgEndpoint,
			keyHeader: "X-Api-Key",
			apiKey:    cfg.RemoveBgAPIKey,
			httpc:     httpc,
			timeout:   cfg.ProviderTimeout,
		}, nil
	case "clipdrop":
		if cfg.ClipdropAPIKey == "" {
			if cfg.IsProduction() {
				return nil, fmt.Errorf("CLIPDROP_API_KEY is required for provider clipdrop in production")
			}
			logger.Warn.Printf("clipdrop credential missing, falling back to mock remover")
			return NewMock(), nil
		}
		return &Client{
			name:      "clipdrop",
			endpoint:  clipdropEndpoint,
			keyHeader: "x-api-key",
			apiKey:    cfg.ClipdropAPIKey,
			httpc:     httpc,
			timeout:   cfg.ProviderTimeout,
		}, nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown removal provider: %q", cfg.Provider)
	}
}
