package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bistro/internal/models"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// AgentRole represents the role of an agent in the conversation
type AgentRole string

const (
	RoleRouter       AgentRole = "router"
	RoleMenu         AgentRole = "menu"
	RoleOrder        AgentRole = "order"
	RoleEditor       AgentRole = "editor"
	RoleUpselling    AgentRole = "upselling"
	RoleFinalization AgentRole = "finalization"
	RoleDelivery     AgentRole = "delivery"
	RoleHuman        AgentRole = "human"
	RoleCoordinator  AgentRole = "coordinator"
)

// ParseRole converts router output into a routable agent role
func ParseRole(s string) (AgentRole, bool) {
	switch r := AgentRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleMenu, RoleOrder, RoleUpselling, RoleFinalization, RoleDelivery, RoleHuman:
		return r, true
	}
	return "", false
}

// ErrNoModel is returned by generation helpers when the agent runs without an LLM
var ErrNoModel = errors.New("no language model configured")

// Settings tunes agent behaviour
type Settings struct {
	MaxOrderItems      int
	UpsellingThreshold int
	Temperature        float64
	MaxTokens          int
	Timeout            time.Duration
}

// DefaultSettings mirrors the default configuration file
func DefaultSettings() Settings {
	return Settings{
		MaxOrderItems:      5,
		UpsellingThreshold: 3,
		Temperature:        0.7,
		MaxTokens:          1000,
		Timeout:            30 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxOrderItems <= 0 {
		s.MaxOrderItems = d.MaxOrderItems
	}
	if s.UpsellingThreshold <= 0 {
		s.UpsellingThreshold = d.UpsellingThreshold
	}
	if s.Temperature <= 0 {
		s.Temperature = d.Temperature
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = d.MaxTokens
	}
	if s.Timeout <= 0 {
		s.Timeout = d.Timeout
	}
	return s
}

// Event represents a single event in the agent's memory
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Memory keeps the most recent events of an agent
type Memory struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

const defaultMemoryLimit = 50

// NewMemory creates an event memory holding up to limit events
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &Memory{events: make([]Event, 0, limit), limit: limit}
}

// Add records an event, dropping the oldest one when full
func (m *Memory) Add(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if len(m.events) == m.limit {
		copy(m.events, m.events[1:])
		m.events = m.events[:m.limit-1]
	}
	m.events = append(m.events, event)
}

// Query returns the latest k events of a type, newest first. An empty type matches all.
func (m *Memory) Query(eventType string, k int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, 0)
	for i := len(m.events) - 1; i >= 0 && (k <= 0 || len(out) < k); i-- {
		if eventType == "" || m.events[i].Type == eventType {
			out = append(out, m.events[i])
		}
	}
	return out
}

// Len returns the number of stored events
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// MetricsRecorder receives conversation telemetry
type MetricsRecorder interface {
	TurnProcessed(agent, stage string, duration time.Duration)
	LLMFallback(agent, reason string)
	UpsellOffered()
	UpsellResponded(accepted bool)
	OrderCompleted(method string, total float64)
	OrderCancelled()
	InterventionTriggered(reason string)
}

type nopMetrics struct{}

func (nopMetrics) TurnProcessed(string, string, time.Duration) {}
func (nopMetrics) LLMFallback(string, string)                  {}
func (nopMetrics) UpsellOffered()                              {}
func (nopMetrics) UpsellResponded(bool)                        {}
func (nopMetrics) OrderCompleted(string, float64)              {}
func (nopMetrics) OrderCancelled()                             {}
func (nopMetrics) InterventionTriggered(string)                {}

// BaseAgent provides common functionality for all agents
type BaseAgent struct {
	role     AgentRole
	model    llms.Model
	settings Settings
	memory   *Memory
	logger   *zap.Logger
	metrics  MetricsRecorder
}

// NewBaseAgent creates a new base agent with the specified role and model.
// A nil model makes every generation fall back to heuristics.
func NewBaseAgent(role AgentRole, model llms.Model, settings Settings, logger *zap.Logger, metrics MetricsRecorder) *BaseAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &BaseAgent{
		role:     role,
		model:    model,
		settings: settings.withDefaults(),
		memory:   NewMemory(defaultMemoryLimit),
		logger:   logger.With(zap.String("agent", string(role))),
		metrics:  metrics,
	}
}

// GetRole returns the agent's role
func (a *BaseAgent) GetRole() AgentRole {
	return a.role
}

// GetModel returns the agent's LLM model
func (a *BaseAgent) GetModel() llms.Model {
	return a.model
}

// GetMemory returns the agent's memory
func (a *BaseAgent) GetMemory() *Memory {
	return a.memory
}

// remember records an event in the agent's memory
func (a *BaseAgent) remember(eventType, content string, metadata map[string]interface{}) {
	a.memory.Add(Event{Type: eventType, Content: content, Metadata: metadata})
}

// generate sends a prompt to the model under the configured timeout.
// Provider failures count towards the conversation's error budget.
func (a *BaseAgent) generate(ctx context.Context, state *models.SharedState, prompt string, options ...llms.CallOption) (string, error) {
	if a.model == nil {
		a.metrics.LLMFallback(string(a.role), "no_model")
		return "", ErrNoModel
	}

	ctx, cancel := context.WithTimeout(ctx, a.settings.Timeout)
	defer cancel()

	opts := append([]llms.CallOption{
		llms.WithTemperature(a.settings.Temperature),
		llms.WithMaxTokens(a.settings.MaxTokens),
	}, options...)

	out, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt, opts...)
	if err != nil {
		a.metrics.LLMFallback(string(a.role), "provider_error")
		a.logger.Warn("llm call failed, using fallback", zap.Error(err))
		a.remember("error", err.Error(), nil)
		if state != nil {
			state.IncrementError(fmt.Sprintf("%s: %v", a.role, err))
		}
		return "", fmt.Errorf("%s generation failed: %w", a.role, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		a.metrics.LLMFallback(string(a.role), "empty_response")
		return "", fmt.Errorf("%s generation returned an empty response", a.role)
	}
	return out, nil
}

// generateJSON asks the model for JSON and decodes it into out
func (a *BaseAgent) generateJSON(ctx context.Context, state *models.SharedState, prompt string, out interface{}) error {
	raw, err := a.generate(ctx, state, prompt, llms.WithJSONMode())
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(extractJSON(raw)), out); err != nil {
		a.metrics.LLMFallback(string(a.role), "invalid_json")
		a.logger.Debug("llm returned invalid json", zap.String("raw", raw), zap.Error(err))
		return fmt.Errorf("%s returned invalid json: %w", a.role, err)
	}
	return nil
}

// extractJSON strips code fences and surrounding prose from a model reply
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
