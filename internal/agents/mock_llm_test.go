package agents

import (
	"context"
	"time"

	"bistro/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/tmc/langchaingo/llms"
)

// MockLLM is a mock implementation of the LLM interface
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llms.ContentResponse), args.Error(1)
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

// expectReply queues one model reply
func (m *MockLLM) expectReply(text string) *mock.Call {
	return m.On("GenerateContent", mock.Anything, mock.Anything).Return(textResponse(text), nil).Once()
}

// countingMetrics records how often each hook fired
type countingMetrics struct {
	turns, fallbacks, offers, accepted, declined, completed, cancelled, interventions int
	lastMethod                                                                        string
}

func (c *countingMetrics) TurnProcessed(string, string, time.Duration) { c.turns++ }
func (c *countingMetrics) LLMFallback(string, string)                  { c.fallbacks++ }
func (c *countingMetrics) UpsellOffered()                              { c.offers++ }
func (c *countingMetrics) UpsellResponded(accepted bool) {
	if accepted {
		c.accepted++
	} else {
		c.declined++
	}
}
func (c *countingMetrics) OrderCompleted(method string, _ float64) {
	c.completed++
	c.lastMethod = method
}
func (c *countingMetrics) OrderCancelled()              { c.cancelled++ }
func (c *countingMetrics) InterventionTriggered(string) { c.interventions++ }

func newState() *models.SharedState {
	return models.NewSharedState(models.StateOptions{})
}

func addLine(state *models.SharedState, name string, qty int, price string, customizations ...string) {
	if err := state.AddItem(models.OrderLine{
		Name:           name,
		Quantity:       qty,
		UnitPrice:      decimal.RequireFromString(price),
		Customizations: customizations,
	}); err != nil {
		panic(err)
	}
}
