// Package brain wraps the external text-generation services the narrative
// step delegates to.
package brain

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/abelbrown/pulse/internal/logging"
)

// ErrNoProvider is returned when no configured provider is available.
var ErrNoProvider = errors.New("no text generation provider available")

// Provider is the interface for AI providers
type Provider interface {
	// Name returns the provider name (e.g., "gemini", "ollama")
	Name() string

	// Available returns true if the provider is configured and ready
	Available() bool

	// Generate sends a prompt and returns the response
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to an AI provider
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Response is the AI provider's response
type Response struct {
	Content string
	Model   string
}

// ProviderManager manages multiple AI providers with fallback
type ProviderManager struct {
	providers []Provider
	preferred string // Preferred provider name
	limiter   *rate.Limiter
}

// Compile-time interface satisfaction checks
var (
	_ Provider = (*ProviderManager)(nil)
	_ Provider = (*GeminiProvider)(nil)
	_ Provider = (*OllamaProvider)(nil)
)

// NewProviderManager creates a new provider manager. Calls are spaced by
// limit; a zero limit disables pacing.
func NewProviderManager(limit rate.Limit) *ProviderManager {
	pm := &ProviderManager{providers: make([]Provider, 0)}
	if limit > 0 {
		pm.limiter = rate.NewLimiter(limit, 1)
	}
	return pm
}

// AddProvider adds a provider to the manager
func (pm *ProviderManager) AddProvider(p Provider) {
	pm.providers = append(pm.providers, p)
}

// SetPreferred sets the preferred provider by name
func (pm *ProviderManager) SetPreferred(name string) {
	pm.preferred = name
}

// GetAvailable returns the first available provider, preferring the preferred one
func (pm *ProviderManager) GetAvailable() Provider {
	if pm.preferred != "" {
		for _, p := range pm.providers {
			if p.Name() == pm.preferred && p.Available() {
				return p
			}
		}
	}

	for _, p := range pm.providers {
		if p.Available() {
			return p
		}
	}

	return nil
}

// ListAvailable returns names of all available providers
func (pm *ProviderManager) ListAvailable() []string {
	var names []string
	for _, p := range pm.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Name implements Provider.
func (pm *ProviderManager) Name() string {
	if p := pm.GetAvailable(); p != nil {
		return p.Name()
	}
	return "none"
}

// Available implements Provider.
func (pm *ProviderManager) Available() bool {
	return pm.GetAvailable() != nil
}

// Generate sends req to the selected provider. There is no retry and no
// fallback after a failed call; the caller degrades instead.
func (pm *ProviderManager) Generate(ctx context.Context, req Request) (Response, error) {
	p := pm.GetAvailable()
	if p == nil {
		return Response{}, ErrNoProvider
	}
	if pm.limiter != nil {
		if err := pm.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("%s: %w", p.Name(), err)
		}
	}

	logging.Debug("Generating text", "provider", p.Name(), "prompt_length", len(req.UserPrompt))
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	return resp, nil
}
