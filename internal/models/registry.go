package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bistro/internal/models/providers"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	GoogleAIProvider     ProviderType = "googleai"
	OpenAIProvider       ProviderType = "openai"
	AnthropicProvider    ProviderType = "anthropic"
	OllamaProvider       ProviderType = "ollama"
	GitHubModelsProvider ProviderType = "github_models"
	AzureOpenAIProvider  ProviderType = "azure_openai"
)

// Registry errors
var (
	ErrUnknownModel       = errors.New("unknown model")
	ErrMissingCredentials = errors.New("missing credentials")
)

// ModelCredentials holds API keys and endpoints for every provider
type ModelCredentials struct {
	GoogleAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GitHubToken     string
	OllamaURL       string
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
}

// ModelProvider defines a supported LLM
type ModelProvider struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ProviderType `json:"type"`
	MaxTokens int          `json:"maxTokens"`
}

// ModelRegistry manages available LLM models
type ModelRegistry struct {
	providers   map[string]*ModelProvider
	instances   map[string]llms.Model
	credentials ModelCredentials
	mu          sync.RWMutex
}

// NewModelRegistry creates a registry with the built-in model table
func NewModelRegistry(creds ModelCredentials) *ModelRegistry {
	r := &ModelRegistry{
		providers:   make(map[string]*ModelProvider),
		instances:   make(map[string]llms.Model),
		credentials: creds,
	}

	r.Register(&ModelProvider{ID: "gemma", Name: "gemma-3-27b-it", Type: GoogleAIProvider, MaxTokens: 8192})
	r.Register(&ModelProvider{ID: "gemini", Name: "gemini-1.5-flash", Type: GoogleAIProvider, MaxTokens: 100000})
	r.Register(&ModelProvider{ID: "gpt4o-mini", Name: "gpt-4o-mini", Type: OpenAIProvider, MaxTokens: 128000})
	r.Register(&ModelProvider{ID: "claude", Name: "claude-3-5-haiku-latest", Type: AnthropicProvider, MaxTokens: 200000})
	r.Register(&ModelProvider{ID: "llama", Name: "llama3.1", Type: OllamaProvider, MaxTokens: 32000})
	r.Register(&ModelProvider{ID: "github", Name: "gpt-4o-mini", Type: GitHubModelsProvider, MaxTokens: 128000})
	r.Register(&ModelProvider{ID: "azure", Name: "azure-deployment", Type: AzureOpenAIProvider, MaxTokens: 128000})

	return r
}

// Register adds or replaces a model definition
func (r *ModelRegistry) Register(provider *ModelProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID] = provider
	delete(r.instances, provider.ID)
}

// List returns every registered model sorted by ID
func (r *ModelRegistry) List() []ModelProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the registered model whose ID or vendor name matches
func (r *ModelRegistry) Resolve(nameOrID string) (*ModelProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[nameOrID]; ok {
		return p, true
	}
	for _, p := range r.providers {
		if p.Name == nameOrID {
			return p, true
		}
	}
	return nil, false
}

// GetModel returns an initialized LLM instance
func (r *ModelRegistry) GetModel(ctx context.Context, id string) (llms.Model, error) {
	provider, ok := r.Resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}

	r.mu.RLock()
	model, cached := r.instances[provider.ID]
	r.mu.RUnlock()
	if cached {
		return model, nil
	}

	model, err := r.initializeModel(ctx, provider)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.instances[provider.ID] = model
	r.mu.Unlock()
	return model, nil
}

// initializeModel creates a new LLM instance based on provider type
func (r *ModelRegistry) initializeModel(ctx context.Context, provider *ModelProvider) (llms.Model, error) {
	creds := r.credentials

	switch provider.Type {
	case GoogleAIProvider:
		if creds.GoogleAPIKey == "" {
			return nil, fmt.Errorf("%w: GOOGLE_API_KEY is not set", ErrMissingCredentials)
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(creds.GoogleAPIKey),
			googleai.WithDefaultModel(provider.Name),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google AI model: %w", err)
		}
		return llm, nil

	case OpenAIProvider:
		if creds.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredentials)
		}
		llm, err := openai.New(
			openai.WithModel(provider.Name),
			openai.WithToken(creds.OpenAIAPIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI model: %w", err)
		}
		return llm, nil

	case AnthropicProvider:
		if creds.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrMissingCredentials)
		}
		llm, err := anthropic.New(
			anthropic.WithModel(provider.Name),
			anthropic.WithToken(creds.AnthropicAPIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Anthropic model: %w", err)
		}
		return llm, nil

	case OllamaProvider:
		opts := []ollama.Option{ollama.WithModel(provider.Name)}
		if creds.OllamaURL != "" {
			opts = append(opts, ollama.WithServerURL(creds.OllamaURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama model: %w", err)
		}
		return llm, nil

	case GitHubModelsProvider:
		llm, err := providers.NewGitHubModels(creds.GitHubToken, provider.Name)
		if errors.Is(err, providers.ErrGitHubTokenMissing) {
			return nil, fmt.Errorf("%w: GITHUB_TOKEN is not set", ErrMissingCredentials)
		}
		return llm, err

	case AzureOpenAIProvider:
		llm, err := providers.NewAzureOpenAIProvider(providers.AzureConfig{
			Endpoint:       creds.AzureEndpoint,
			APIKey:         creds.AzureAPIKey,
			DeploymentName: creds.AzureDeployment,
		})
		if errors.Is(err, providers.ErrAzureNotConfigured) {
			return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		if err != nil {
			return nil, err
		}
		return llm, nil

	default:
		return nil, fmt.Errorf("unsupported model type: %s", provider.Type)
	}
}

// TestModel tests if the model is working by sending a simple query
func (r *ModelRegistry) TestModel(ctx context.Context, id string) (bool, error) {
	model, err := r.GetModel(ctx, id)
	if err != nil {
		return false, err
	}

	_, err = llms.GenerateFromSinglePrompt(ctx, model, "Hello, are you working? Please respond with a short answer.")
	if err != nil {
		return false, err
	}

	return true, nil
}
