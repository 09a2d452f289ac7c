package search

import (
	"fmt"

	"travel-planner/internal/common/config"
	httpclient "travel-planner/internal/common/http"
)

// NewFromConfig builds the Provider selected by cfg.Backend.
func NewFromConfig(cfg config.SearchConfig, log Logger) (*Provider, error) {
	client := httpclient.NewClient(cfg.SearchTimeout())

	var backend Backend
	switch cfg.Backend {
	case config.BackendDuckDuckGo:
		backend = NewDuckDuckGo(cfg.BaseURL, client)
	case config.BackendGoogle:
		backend = NewGoogleCSE(cfg.BaseURL, cfg.APIKey, cfg.EngineID, client)
	case config.BackendStatic:
		backend = &Static{Result: Text(cfg.StaticText)}
		if cfg.StaticText == "" {
			backend = &Static{Result: Empty()}
		}
	default:
		return nil, fmt.Errorf("unsupported search backend %q", cfg.Backend)
	}

	return NewProvider(backend, cfg.MaxResults, log), nil
}
