package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyOrder is returned when an operation needs at least one order line
var ErrEmptyOrder = errors.New("no items in order")

// Defaults for conversation limits
const (
	DefaultMaxUpsellAttempts = 2
	DefaultErrorThreshold    = 3
	RecentHistorySize        = 10
)

// Turn is one customer message and the reply it produced
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	UserInput string    `json:"user_input"`
	Response  string    `json:"response"`
	Agent     string    `json:"agent"`
	Stage     Stage     `json:"stage"`
}

// StateOptions tunes a conversation's limits
type StateOptions struct {
	// TaxRate nil uses DefaultTaxRate. Zero is a valid tax-free rate.
	TaxRate           *decimal.Decimal
	MaxUpsellAttempts int
	ErrorThreshold    int
}

func (o StateOptions) withDefaults() StateOptions {
	if o.TaxRate == nil {
		rate := DefaultTaxRate
		o.TaxRate = &rate
	}
	if o.MaxUpsellAttempts <= 0 {
		o.MaxUpsellAttempts = DefaultMaxUpsellAttempts
	}
	if o.ErrorThreshold <= 0 {
		o.ErrorThreshold = DefaultErrorThreshold
	}
	return o
}

// SharedState is the mutable memory of one conversation, shared by all agents.
// It is not safe for concurrent use; callers process one turn at a time.
type SharedState struct {
	stage   Stage
	intent  Intent
	ledger  *Ledger
	pricing *PricingCalculator
	router  *StageRouter
	opts    StateOptions

	OrderStatus     OrderStatus
	OrderID         string
	CustomerName    string
	DeliveryMethod  DeliveryMethod
	DeliveryDetails DeliveryDetails

	History               []Turn
	LastAgent             string
	LastAction            string
	PendingClarifications []string

	UpsellAttempts      int
	SuggestedItems      []string
	DeclinedSuggestions []string
	MenuDisplayed       bool

	ErrorCount             int
	LastError              string
	NeedsHumanIntervention bool
	InterventionReason     string
	InterventionCount      int

	SessionStart time.Time
	LastActivity time.Time

	now func() time.Time
}

// NewSharedState creates the state of a fresh conversation
func NewSharedState(opts StateOptions) *SharedState {
	s := &SharedState{opts: opts.withDefaults(), now: time.Now}
	s.init()
	return s
}

func (s *SharedState) init() {
	now := s.now()
	s.stage = StageGreeting
	s.intent = ""
	s.ledger = NewLedger()
	s.pricing = NewPricingCalculator(*s.opts.TaxRate)
	s.router = NewStageRouter()
	s.OrderStatus = OrderStatusPending
	s.OrderID = ""
	s.CustomerName = ""
	s.DeliveryMethod = ""
	s.DeliveryDetails = DeliveryDetails{}
	s.History = make([]Turn, 0)
	s.LastAgent = ""
	s.LastAction = ""
	s.PendingClarifications = nil
	s.UpsellAttempts = 0
	s.SuggestedItems = nil
	s.DeclinedSuggestions = nil
	s.MenuDisplayed = false
	s.ErrorCount = 0
	s.LastError = ""
	s.NeedsHumanIntervention = false
	s.InterventionReason = ""
	s.InterventionCount = 0
	s.SessionStart = now
	s.LastActivity = now
}

// Reset starts the conversation over, keeping the configured limits
func (s *SharedState) Reset() {
	s.init()
}

// Stage returns the current conversation stage
func (s *SharedState) Stage() Stage {
	return s.stage
}

// Intent returns the last applied intent
func (s *SharedState) Intent() Intent {
	return s.intent
}

// Ledger exposes the order ledger
func (s *SharedState) Ledger() *Ledger {
	return s.ledger
}

// Router exposes the stage machine
func (s *SharedState) Router() *StageRouter {
	return s.router
}

// MaxUpsellAttempts returns how many upsell offers a conversation may receive
func (s *SharedState) MaxUpsellAttempts() int {
	return s.opts.MaxUpsellAttempts
}

// Totals derives subtotal, tax and total from the current lines
func (s *SharedState) Totals() Totals {
	return s.pricing.Calculate(s.ledger.Lines())
}

// Touch marks the conversation as active
func (s *SharedState) Touch() {
	s.LastActivity = s.now()
}

// Apply moves the conversation along the stage machine
func (s *SharedState) Apply(intent Intent) (Stage, error) {
	next, err := s.router.Next(s.stage, intent)
	if err != nil {
		return s.stage, err
	}

	switch next {
	case StageCompleted:
		s.ledger.Freeze()
		s.OrderStatus = OrderStatusConfirmed
	case StageGreeting:
		if intent == IntentCancelOrder {
			if err := s.ledger.Clear(); err != nil {
				return s.stage, err
			}
			s.OrderStatus = OrderStatusCancelled
			s.DeliveryMethod = ""
			s.SuggestedItems = nil
		}
	}

	s.stage = next
	s.intent = intent
	s.Touch()
	return next, nil
}

// AddItem adds a line to the order
func (s *SharedState) AddItem(line OrderLine) error {
	if err := s.ledger.Add(line); err != nil {
		return err
	}
	if s.OrderStatus == OrderStatusCancelled {
		s.OrderStatus = OrderStatusPending
	}
	s.Touch()
	return nil
}

// RemoveItem deletes every line of an item
func (s *SharedState) RemoveItem(name string) error {
	if err := s.ledger.Remove(name); err != nil {
		return err
	}
	s.Touch()
	return nil
}

// Cancel clears the order and returns to greeting
func (s *SharedState) Cancel() error {
	_, err := s.Apply(IntentCancelOrder)
	return err
}

// Complete confirms the order with a delivery method and freezes the ledger
func (s *SharedState) Complete(method DeliveryMethod) error {
	if s.ledger.Empty() {
		return ErrEmptyOrder
	}
	if _, err := s.Apply(IntentDeliveryMethod); err != nil {
		return err
	}
	s.DeliveryMethod = method
	return nil
}

// ReadyForCompletion reports whether the order can be confirmed
func (s *SharedState) ReadyForCompletion() bool {
	if s.ledger.Empty() || s.NeedsHumanIntervention {
		return false
	}
	return s.stage == StageFinalizing || s.stage == StageAwaitingDelivery
}

// AddTurn records a message exchange in the history
func (s *SharedState) AddTurn(input, response, agent string) {
	s.History = append(s.History, Turn{
		Timestamp: s.now(),
		UserInput: input,
		Response:  response,
		Agent:     agent,
		Stage:     s.stage,
	})
	s.LastAgent = agent
	s.Touch()
}

// RecentHistory returns up to n of the latest turns
func (s *SharedState) RecentHistory(n int) []Turn {
	if n <= 0 || n >= len(s.History) {
		return append([]Turn(nil), s.History...)
	}
	return append([]Turn(nil), s.History[len(s.History)-n:]...)
}

// TriggerIntervention flags the conversation for a human
func (s *SharedState) TriggerIntervention(reason string) {
	if !s.NeedsHumanIntervention {
		s.InterventionCount++
	}
	s.NeedsHumanIntervention = true
	s.InterventionReason = reason
}

// ResolveIntervention hands the conversation back to the agents
func (s *SharedState) ResolveIntervention() {
	s.NeedsHumanIntervention = false
	s.InterventionReason = ""
	s.ErrorCount = 0
	s.LastError = ""
}

// IncrementError records a failure and escalates once the threshold is reached.
// It reports whether this call triggered the intervention.
func (s *SharedState) IncrementError(msg string) bool {
	s.ErrorCount++
	s.LastError = msg
	if s.ErrorCount >= s.opts.ErrorThreshold && !s.NeedsHumanIntervention {
		s.TriggerIntervention("Multiple errors encountered: " + msg)
		return true
	}
	return false
}

// CanUpsell reports whether another upsell offer is allowed
func (s *SharedState) CanUpsell() bool {
	return s.UpsellAttempts < s.opts.MaxUpsellAttempts
}

// IsDeclined reports whether the customer already turned the item down
func (s *SharedState) IsDeclined(name string) bool {
	for _, d := range s.DeclinedSuggestions {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// SessionDuration returns how long the conversation has been running
func (s *SharedState) SessionDuration() time.Duration {
	return s.now().Sub(s.SessionStart)
}

// Summary renders the state as short context for prompts
func (s *SharedState) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stage: %s\n", s.stage)

	if s.ledger.Empty() {
		b.WriteString("Current order: empty\n")
	} else {
		b.WriteString("Current order:\n")
		b.WriteString(FormatLines(s.ledger.Lines()))
		totals := s.Totals()
		fmt.Fprintf(&b, "Total: %s\n", FormatMoney(totals.Total))
	}

	if s.LastAgent != "" {
		fmt.Fprintf(&b, "Last agent: %s\n", s.LastAgent)
	}
	if s.DeliveryMethod != "" {
		fmt.Fprintf(&b, "Delivery method: %s\n", s.DeliveryMethod)
	}
	fmt.Fprintf(&b, "Upsell attempts: %d/%d\n", s.UpsellAttempts, s.opts.MaxUpsellAttempts)
	if len(s.DeclinedSuggestions) > 0 {
		fmt.Fprintf(&b, "Declined suggestions: %s\n", strings.Join(s.DeclinedSuggestions, ", "))
	}

	for _, turn := range s.RecentHistory(3) {
		fmt.Fprintf(&b, "Customer: %s\nAssistant (%s): %s\n", turn.UserInput, turn.Agent, turn.Response)
	}

	return b.String()
}

// FormatLines renders order lines one per line
func FormatLines(lines []OrderLine) string {
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "- %dx %s", line.Quantity, line.Name)
		if len(line.Customizations) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(line.Customizations, ", "))
		}
		fmt.Fprintf(&b, ": %s\n", FormatMoney(line.LineTotal()))
	}
	return b.String()
}

// LineView is an order line with its computed total
type LineView struct {
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Customizations []string        `json:"customizations,omitempty"`
}

// StateSnapshot is a serialisable view of a conversation
type StateSnapshot struct {
	Stage                  Stage           `json:"stage"`
	Intent                 Intent          `json:"intent,omitempty"`
	Items                  []LineView      `json:"items"`
	Totals                 Totals          `json:"totals"`
	OrderStatus            OrderStatus     `json:"order_status"`
	OrderID                string          `json:"order_id,omitempty"`
	CustomerName           string          `json:"customer_name,omitempty"`
	DeliveryMethod         DeliveryMethod  `json:"delivery_method,omitempty"`
	DeliveryDetails        DeliveryDetails `json:"delivery_details"`
	LastAgent              string          `json:"last_agent,omitempty"`
	LastAction             string          `json:"last_action,omitempty"`
	RecentHistory          []Turn          `json:"conversation_history"`
	PendingClarifications  []string        `json:"pending_clarifications,omitempty"`
	UpsellAttempts         int             `json:"upsell_attempts"`
	SuggestedItems         []string        `json:"suggested_items,omitempty"`
	DeclinedSuggestions    []string        `json:"declined_suggestions,omitempty"`
	MenuDisplayed          bool            `json:"menu_displayed"`
	ErrorCount             int             `json:"error_count"`
	LastError              string          `json:"last_error,omitempty"`
	NeedsHumanIntervention bool            `json:"needs_human_intervention"`
	InterventionReason     string          `json:"intervention_reason,omitempty"`
	SessionStart           time.Time       `json:"session_start"`
	LastActivity           time.Time       `json:"last_activity"`
	SessionDuration        float64         `json:"session_duration"`
}

// Views returns the order lines with computed line totals
func (s *SharedState) Views() []LineView {
	lines := s.ledger.Lines()
	views := make([]LineView, len(lines))
	for i, line := range lines {
		views[i] = LineView{
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			TotalPrice:     line.LineTotal(),
			Customizations: line.Customizations,
		}
	}
	return views
}

// Snapshot captures the state for clients and logs
func (s *SharedState) Snapshot() StateSnapshot {
	return StateSnapshot{
		Stage:                  s.stage,
		Intent:                 s.intent,
		Items:                  s.Views(),
		Totals:                 s.Totals(),
		OrderStatus:            s.OrderStatus,
		OrderID:                s.OrderID,
		CustomerName:           s.CustomerName,
		DeliveryMethod:         s.DeliveryMethod,
		DeliveryDetails:        s.DeliveryDetails,
		LastAgent:              s.LastAgent,
		LastAction:             s.LastAction,
		RecentHistory:          s.RecentHistory(RecentHistorySize),
		PendingClarifications:  append([]string(nil), s.PendingClarifications...),
		UpsellAttempts:         s.UpsellAttempts,
		SuggestedItems:         append([]string(nil), s.SuggestedItems...),
		DeclinedSuggestions:    append([]string(nil), s.DeclinedSuggestions...),
		MenuDisplayed:          s.MenuDisplayed,
		ErrorCount:             s.ErrorCount,
		LastError:              s.LastError,
		NeedsHumanIntervention: s.NeedsHumanIntervention,
		InterventionReason:     s.InterventionReason,
		SessionStart:           s.SessionStart,
		LastActivity:           s.LastActivity,
		SessionDuration:        s.SessionDuration().Seconds(),
	}
}
