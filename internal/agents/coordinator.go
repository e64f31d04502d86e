package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bistro/internal/models"
	"bistro/internal/search"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Fixed coordinator replies
const (
	MessageEmptyInput   = "I didn't catch that. Could you please say it again?"
	MessageCompleted    = "Your order has already been placed. Thank you for dining with us! Start a new order anytime."
	MessageHumanHandoff = "I'm connecting you with a human staff member who can better assist you. Please wait a moment."
	MessageCancelled    = "Your order has been cancelled. Would you like to start a new order?"
	MessageHandlerError = "I'm sorry, I encountered an error. Could you please try again?"
	MessageEmptyOrder   = "No items in order yet. Would you like to see our menu?"
	MessageAskDelivery  = "Would you like delivery or pickup?"
	MessageProceed      = "Shall we proceed with delivery or pickup?"
)

// OrderStore persists confirmed orders
type OrderStore interface {
	SaveOrder(ctx context.Context, order *models.Order) error
}

// Reply is the coordinator's answer to one customer message
type Reply struct {
	Message    string        `json:"message"`
	Agent      AgentRole     `json:"agent"`
	Stage      models.Stage  `json:"stage"`
	Intent     models.Intent `json:"intent,omitempty"`
	NeedsHuman bool          `json:"needs_human"`
	OrderID    string        `json:"order_id,omitempty"`
}

// Analytics summarises a conversation for monitoring
type Analytics struct {
	SessionID       string  `json:"session_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	Interactions    int     `json:"total_interactions"`

	ItemCount        int             `json:"items_count"`
	OrderValue       decimal.Decimal `json:"order_value"`
	AverageItemPrice decimal.Decimal `json:"avg_item_price"`

	LastAgent          string `json:"last_agent,omitempty"`
	UpsellAttempts     int    `json:"upsell_attempts"`
	HumanInterventions int    `json:"human_interventions"`

	Intent models.Intent `json:"current_intent,omitempty"`
	Stage  models.Stage  `json:"current_stage"`
	Errors int           `json:"errors_encountered"`
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithSettings overrides the agent settings
func WithSettings(s Settings) Option {
	return func(c *Coordinator) { c.settings = s }
}

// WithMenu replaces the default menu
func WithMenu(menu *models.Menu) Option {
	return func(c *Coordinator) { c.menu = menu }
}

// WithIndex enables fuzzy menu search
func WithIndex(index *search.MenuIndex) Option {
	return func(c *Coordinator) { c.index = index }
}

// WithStore persists confirmed orders
func WithStore(store OrderStore) Option {
	return func(c *Coordinator) { c.store = store }
}

// WithMetrics records conversation telemetry
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithSessionID sets the conversation id
func WithSessionID(id string) Option {
	return func(c *Coordinator) { c.sessionID = id }
}

// WithStateOptions tunes the conversation limits
func WithStateOptions(opts models.StateOptions) Option {
	return func(c *Coordinator) { c.stateOpts = opts }
}

// Coordinator runs one conversation: it routes every message to an agent and
// moves the shared state along the stage machine. It is not safe for concurrent use.
type Coordinator struct {
	sessionID string
	settings  Settings
	menu      *models.Menu
	index     *search.MenuIndex
	store     OrderStore
	metrics   MetricsRecorder
	logger    *zap.Logger
	stateOpts models.StateOptions

	state     *models.SharedState
	router    *Router
	editor    *OrderEditor
	menuAgent *MenuAgent
	orders    *OrderAgent
	upselling *UpsellingAgent
}

// NewCoordinator wires the agents around a shared state. A nil model runs on heuristics only.
func NewCoordinator(model llms.Model, opts ...Option) *Coordinator {
	c := &Coordinator{settings: DefaultSettings()}
	for _, opt := range opts {
		opt(c)
	}
	if c.menu == nil {
		c.menu = models.DefaultMenu()
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	c.settings = c.settings.withDefaults()
	c.logger = c.logger.With(zap.String("session_id", c.sessionID))

	c.state = models.NewSharedState(c.stateOpts)
	c.editor = NewOrderEditor(model, c.menu, c.settings, c.logger, c.metrics)
	c.router = NewRouter(model, c.menu, c.editor, c.settings, c.logger, c.metrics)
	c.menuAgent = NewMenuAgent(model, c.menu, c.index, c.settings, c.logger, c.metrics)
	c.orders = NewOrderAgent(model, c.menu, c.index, c.editor, c.settings, c.logger, c.metrics)
	c.upselling = NewUpsellingAgent(model, c.menu, nil, c.settings, c.logger, c.metrics)
	return c
}

// SessionID returns the conversation id
func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// State exposes the shared state
func (c *Coordinator) State() *models.SharedState {
	return c.state
}

// ProcessInput handles one customer message. The error is only set when ctx is done.
func (c *Coordinator) ProcessInput(ctx context.Context, input string) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	clean := models.SanitizeInput(input)
	if clean == "" {
		return c.reply(MessageEmptyInput, RoleCoordinator, ""), nil
	}
	if c.state.Stage() == models.StageCompleted {
		return c.finish(clean, MessageCompleted, RoleCoordinator, "", start), nil
	}
	if c.state.NeedsHumanIntervention {
		return c.finish(clean, MessageHumanHandoff, RoleHuman, "", start), nil
	}

	c.captureName(clean)

	decision := c.router.Route(ctx, c.state, clean)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.state.NeedsHumanIntervention {
		c.metrics.InterventionTriggered("errors")
		return c.finish(clean, MessageHumanHandoff, RoleHuman, decision.Intent, start), nil
	}

	if decision.NeedsClarification {
		question := decision.ClarificationQuestion
		if question == "" {
			question = "Could you please clarify what you're looking for?"
		}
		c.state.PendingClarifications = append(c.state.PendingClarifications, question)
		return c.finish(clean, question, RoleRouter, decision.Intent, start), nil
	}
	c.state.PendingClarifications = nil

	message, err := c.dispatch(ctx, decision, clean)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("agent failed", zap.String("agent", string(decision.Agent)), zap.Error(err))
		if c.state.IncrementError(err.Error()) {
			c.metrics.InterventionTriggered("errors")
		}
		message = MessageHandlerError
		if c.state.NeedsHumanIntervention {
			message = MessageHumanHandoff
		}
	}

	return c.finish(clean, message, decision.Agent, decision.Intent, start), nil
}

func (c *Coordinator) dispatch(ctx context.Context, d RouteDecision, input string) (string, error) {
	switch d.Agent {
	case RoleOrder:
		return c.handleOrder(ctx, d, input)
	case RoleUpselling:
		return c.handleUpsell(ctx, d, input)
	case RoleFinalization:
		if d.Intent == models.IntentCancelOrder {
			return c.handleCancel()
		}
		return c.handleFinalize()
	case RoleDelivery:
		return c.handleDelivery(ctx, d, input)
	case RoleHuman:
		c.state.TriggerIntervention("Customer requested human assistance")
		c.metrics.InterventionTriggered("requested")
		return MessageHumanHandoff, nil
	}

	message := c.menuAgent.Handle(ctx, c.state, d, input)
	c.advance(d.Intent)
	return message, nil
}

func (c *Coordinator) handleOrder(ctx context.Context, d RouteDecision, input string) (string, error) {
	switch d.Intent {
	case models.IntentModifyOrder:
		message, err := c.orders.Modify(ctx, c.state, d, input)
		if err != nil {
			return "", err
		}
		c.advance(models.IntentModifyOrder)
		if c.state.Stage() == models.StageAwaitingDelivery {
			message += "\n\n" + MessageProceed
		}
		return message, nil

	case models.IntentPlaceOrder:
		result, err := c.orders.AddItems(c.state, d.Items)
		if err != nil {
			return "", err
		}
		if len(result.Added) == 0 {
			return result.Message, nil
		}
		c.advance(models.IntentPlaceOrder)
		if c.state.Stage() == models.StageOrdering {
			if offer, ok := c.upselling.Offer(ctx, c.state); ok {
				c.advance(models.IntentUpsellOffered)
				return result.Message + "\n\n" + offer, nil
			}
		}
		return result.Message, nil
	}

	c.advance(models.IntentAskQuestion)
	return c.orders.FormatSummary(c.state), nil
}

func (c *Coordinator) handleUpsell(ctx context.Context, d RouteDecision, input string) (string, error) {
	if c.state.Stage() != models.StageUpselling && len(c.state.SuggestedItems) == 0 {
		return c.menuAgent.Handle(ctx, c.state, d, input), nil
	}

	accept := d.Intent == models.IntentAcceptUpsell
	message, err := c.upselling.Respond(c.state, accept, input)
	if err != nil {
		return "", err
	}
	c.advance(d.Intent)
	return message, nil
}

func (c *Coordinator) handleCancel() (string, error) {
	if err := c.state.Cancel(); err != nil {
		return "", fmt.Errorf("cancel order: %w", err)
	}
	c.metrics.OrderCancelled()
	return MessageCancelled, nil
}

func (c *Coordinator) handleFinalize() (string, error) {
	if err := c.orders.Validate(c.state); err != nil {
		if errors.Is(err, models.ErrEmptyOrder) {
			return MessageEmptyOrder, nil
		}
		return "", err
	}

	if _, err := c.state.Apply(models.IntentFinalizeOrder); err != nil {
		return "", err
	}
	if _, err := c.state.Apply(models.IntentSummaryPresented); err != nil {
		return "", err
	}

	return "FINAL ORDER CONFIRMATION\n\n" + c.orders.FormatSummary(c.state) + "\n\n" + MessageAskDelivery, nil
}

func (c *Coordinator) handleDelivery(ctx context.Context, d RouteDecision, input string) (string, error) {
	stage := c.state.Stage()
	if stage != models.StageFinalizing && stage != models.StageAwaitingDelivery {
		return c.handleFinalize()
	}

	method := d.DeliveryMethod
	if method == "" {
		text := normalize(input)
		switch {
		case containsAny(text, pickupWords):
			method = models.DeliveryMethodPickup
		case containsAny(text, deliveryWords):
			method = models.DeliveryMethodDelivery
		default:
			return MessageAskDelivery, nil
		}
	}

	c.state.DeliveryDetails = models.ExtractDeliveryDetails(input).Merge(c.state.DeliveryDetails)
	if err := c.state.Complete(method); err != nil {
		if errors.Is(err, models.ErrEmptyOrder) {
			return MessageEmptyOrder, nil
		}
		return "", err
	}
	c.state.OrderID = uuid.NewString()

	totals := c.state.Totals()
	if c.store != nil {
		record := models.NewOrderRecord(c.state.OrderID, c.sessionID, c.state)
		if err := c.store.SaveOrder(ctx, record); err != nil {
			c.logger.Error("failed to persist order", zap.String("order_id", c.state.OrderID), zap.Error(err))
		}
	}
	c.metrics.OrderCompleted(string(method), totals.Total.InexactFloat64())
	c.logger.Info("order completed",
		zap.String("order_id", c.state.OrderID),
		zap.String("method", string(method)),
		zap.String("total", totals.Total.StringFixed(2)),
	)

	var b strings.Builder
	if method == models.DeliveryMethodPickup {
		b.WriteString("Great! Your order will be ready for pickup.\n\n")
	} else {
		b.WriteString("Perfect! Your order will be delivered.\n\n")
	}
	fmt.Fprintf(&b, "Order ID: %s\n", c.state.OrderID)
	fmt.Fprintf(&b, "Order Total: %s\n", models.FormatMoney(totals.Total))
	fmt.Fprintf(&b, "Estimated %s time: %s\n\n", method, method.EstimatedTime())
	b.WriteString("Thank you for your order! We'll start preparing it right away.")
	return b.String(), nil
}

// advance applies an intent, keeping the current stage when the move is not allowed
func (c *Coordinator) advance(intent models.Intent) {
	if intent == "" {
		return
	}
	if _, err := c.state.Apply(intent); err != nil {
		c.logger.Debug("stage unchanged",
			zap.String("stage", string(c.state.Stage())),
			zap.String("intent", string(intent)),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) captureName(input string) {
	if c.state.CustomerName != "" {
		return
	}
	if name := models.ExtractDeliveryDetails(input).Name; name != "" {
		c.state.CustomerName = name
	}
}

func (c *Coordinator) finish(input, message string, agent AgentRole, intent models.Intent, start time.Time) *Reply {
	c.state.AddTurn(input, message, string(agent))
	if intent != "" {
		c.state.LastAction = string(intent)
	}
	c.metrics.TurnProcessed(string(agent), string(c.state.Stage()), time.Since(start))
	return c.reply(message, agent, intent)
}

func (c *Coordinator) reply(message string, agent AgentRole, intent models.Intent) *Reply {
	return &Reply{
		Message:    message,
		Agent:      agent,
		Stage:      c.state.Stage(),
		Intent:     intent,
		NeedsHuman: c.state.NeedsHumanIntervention,
		OrderID:    c.state.OrderID,
	}
}

// Greeting returns the opening message
func (c *Coordinator) Greeting() string {
	return GreetingMessage
}

// Reset starts the conversation over
func (c *Coordinator) Reset() {
	c.state.Reset()
	c.logger.Info("conversation reset")
}

// Snapshot returns a serialisable view of the conversation
func (c *Coordinator) Snapshot() models.StateSnapshot {
	return c.state.Snapshot()
}

// OrderDetails returns the current order with totals
func (c *Coordinator) OrderDetails() OrderSummary {
	return c.orders.Summary(c.state)
}

// Suggestions proposes what the customer could say next
func (c *Coordinator) Suggestions(ctx context.Context) []string {
	return c.router.Suggestions(ctx, c.state)
}

// ResolveIntervention hands the conversation back to the agents
func (c *Coordinator) ResolveIntervention() {
	c.state.ResolveIntervention()
	c.logger.Info("intervention resolved")
}

// Analytics summarises the conversation
func (c *Coordinator) Analytics() Analytics {
	totals := c.state.Totals()
	count := c.state.Ledger().ItemCount()

	avg := decimal.Zero
	if count > 0 {
		avg = totals.Subtotal.Div(decimal.NewFromInt(int64(count))).Round(2)
	}

	return Analytics{
		SessionID:          c.sessionID,
		DurationSeconds:    c.state.SessionDuration().Seconds(),
		Interactions:       len(c.state.History),
		ItemCount:          count,
		OrderValue:         totals.Total.Round(2),
		AverageItemPrice:   avg,
		LastAgent:          c.state.LastAgent,
		UpsellAttempts:     c.state.UpsellAttempts,
		HumanInterventions: c.state.InterventionCount,
		Intent:             c.state.Intent(),
		Stage:              c.state.Stage(),
		Errors:             c.state.ErrorCount,
	}
}
