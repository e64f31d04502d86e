package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/tmc/langchaingo/llms"
)

// AzureConfig holds the Azure OpenAI deployment settings
type AzureConfig struct {
	Endpoint       string
	APIKey         string
	DeploymentName string
	Temperature    float32
	MaxTokens      int32
}

// ErrAzureNotConfigured is returned when endpoint, key or deployment is missing
var ErrAzureNotConfigured = errors.New("azure openai configuration missing: endpoint, api key and deployment name are required")

// AzureOpenAIProvider adapts an Azure OpenAI chat deployment to llms.Model
type AzureOpenAIProvider struct {
	client         *azopenai.Client
	deploymentName string
	temperature    float32
	maxTokens      int32
}

var _ llms.Model = (*AzureOpenAIProvider)(nil)

// NewAzureOpenAIProvider creates a new Azure OpenAI provider
func NewAzureOpenAIProvider(cfg AzureConfig) (*AzureOpenAIProvider, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.DeploymentName == "" {
		return nil, ErrAzureNotConfigured
	}

	keyCredential := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	p := &AzureOpenAIProvider{
		client:         client,
		deploymentName: cfg.DeploymentName,
		temperature:    0.7,
		maxTokens:      1000,
	}
	if cfg.Temperature > 0 {
		p.temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		p.maxTokens = cfg.MaxTokens
	}
	return p, nil
}

// GenerateContent implements llms.Model
func (p *AzureOpenAIProvider) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := resolveCallOptions(options)

	chatMessages := make([]azopenai.ChatRequestMessageClassification, 0, len(messages))
	for _, msg := range FromMessageContent(messages) {
		switch msg.Role {
		case RoleSystem:
			chatMessages = append(chatMessages, &azopenai.ChatRequestSystemMessage{
				Content: azopenai.NewChatRequestSystemMessageContent(msg.Content),
			})
		case RoleAssistant:
			chatMessages = append(chatMessages, &azopenai.ChatRequestAssistantMessage{
				Content: azopenai.NewChatRequestAssistantMessageContent(msg.Content),
			})
		default:
			chatMessages = append(chatMessages, &azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(msg.Content),
			})
		}
	}

	temperature := p.temperature
	if opts.Temperature > 0 {
		temperature = float32(opts.Temperature)
	}
	maxTokens := p.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = int32(opts.MaxTokens)
	}

	resp, err := p.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		Messages:       chatMessages,
		MaxTokens:      to.Ptr(maxTokens),
		Temperature:    to.Ptr(temperature),
		DeploymentName: to.Ptr(p.deploymentName),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("azure openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("empty response from Azure OpenAI")
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		if choice.Message == nil || choice.Message.Content == nil {
			continue
		}
		choices = append(choices, &llms.ContentChoice{Content: *choice.Message.Content})
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

// Call implements llms.Model
func (p *AzureOpenAIProvider) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, p, prompt, options...)
}

// SetTemperature sets the default temperature for completions
func (p *AzureOpenAIProvider) SetTemperature(temp float32) {
	p.temperature = temp
}

// SetMaxTokens sets the default max tokens for completions
func (p *AzureOpenAIProvider) SetMaxTokens(tokens int32) {
	p.maxTokens = tokens
}
