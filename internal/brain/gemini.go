package brain

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/abelbrown/pulse/internal/logging"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements the Provider interface for Google's Gemini models
type GeminiProvider struct {
	apiKey string
	model  string

	mu        sync.Mutex
	client    *genai.Client
	newClient func(context.Context, *genai.ClientConfig) (*genai.Client, error)
}

// NewGeminiProvider creates a new Gemini provider. The SDK client is created
// on first use; a failed creation is retried on the next call.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model, newClient: genai.NewClient}
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Available() bool {
	return g.apiKey != ""
}

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := g.newClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !g.Available() {
		logging.Warn("Gemini provider not configured")
		return Response{}, fmt.Errorf("gemini provider not configured")
	}

	client, err := g.getClient(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	logging.Debug("Gemini API request starting", "model", g.model, "max_tokens", req.MaxTokens)

	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		logging.Error("Gemini API error", "model", g.model, "err", err)
		return Response{}, fmt.Errorf("generate content: %w", err)
	}

	content := result.Text()
	modelName := g.model
	if result.ModelVersion != "" {
		modelName = result.ModelVersion
	}

	logging.Info("Gemini API response",
		"model", modelName,
		"content_length", len(content))

	return Response{Content: content, Model: modelName}, nil
}
