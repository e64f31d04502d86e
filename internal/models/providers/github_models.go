package providers

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// GitHubModelsBaseURL is the OpenAI-compatible endpoint of GitHub Models
const GitHubModelsBaseURL = "https://models.inference.ai.azure.com"

// ErrGitHubTokenMissing is returned when no GitHub token is configured
var ErrGitHubTokenMissing = errors.New("a GitHub token is required for GitHub Models")

// ModelInfo describes a model served by a provider
type ModelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	MaxTokens int    `json:"maxTokens"`
}

// GitHubModels lists the chat models available on the free tier
var GitHubModels = []ModelInfo{
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "github_models", MaxTokens: 128000},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "github_models", MaxTokens: 128000},
	{ID: "Phi-3.5-mini-instruct", Name: "Phi 3.5 Mini", Provider: "github_models", MaxTokens: 8192},
	{ID: "Meta-Llama-3.1-70B-Instruct", Name: "Llama 3.1 70B", Provider: "github_models", MaxTokens: 8192},
	{ID: "Mistral-large-2407", Name: "Mistral Large", Provider: "github_models", MaxTokens: 32000},
}

// NewGitHubModels creates a langchaingo model backed by GitHub Models
func NewGitHubModels(token, model string) (llms.Model, error) {
	if token == "" {
		return nil, ErrGitHubTokenMissing
	}
	if model == "" {
		model = GitHubModels[0].ID
	}

	// GitHub Models uses an OpenAI-compatible API
	client, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(GitHubModelsBaseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}
	return client, nil
}
