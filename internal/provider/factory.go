package provider

import (
	"fmt"
	"log/slog"
	"sync"

	"minibot/internal/config"
	"minibot/internal/domain"
)

// Factory creates and caches LLM providers from config.
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  map[string]domain.Provider
	mu     sync.Mutex
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]domain.Provider),
	}
}

// Get returns the provider with the given name, or the default when name is
// empty. Created providers are cached and reused.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.General.DefaultProvider
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}

	pricing := Pricing{
		InputPerMillion:  pc.InputPricePerM,
		OutputPerMillion: pc.OutputPricePerM,
	}

	var p domain.Provider
	switch name {
	case "claude":
		p = NewClaude(ClaudeConfig{APIKey: pc.APIKey, Model: pc.DefaultModel, Pricing: pricing, Logger: f.logger})
	case "openai":
		p = NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.DefaultModel, Pricing: pricing, Logger: f.logger})
	default:
		if pc.APIBase == "" {
			return nil, fmt.Errorf("provider %s: no API base configured", name)
		}
		// Unknown providers are treated as OpenAI-compatible.
		p = NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.DefaultModel, Pricing: pricing, Logger: f.logger})
	}

	f.cache[name] = p
	return p, nil
}

// Default returns the configured default provider.
func (f *Factory) Default() (domain.Provider, error) {
	return f.Get("")
}
