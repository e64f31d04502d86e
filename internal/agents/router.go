package agents

import (
	"context"
	"strings"
	"unicode"

	"bistro/internal/models"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Where a routing decision came from
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// RouteDecision tells the coordinator which agent handles a message
type RouteDecision struct {
	Agent                 AgentRole             `json:"agent"`
	Intent                models.Intent         `json:"intent"`
	Confidence            float64               `json:"confidence"`
	Items                 []ExtractedItem       `json:"items,omitempty"`
	NeedsClarification    bool                  `json:"needs_clarification"`
	ClarificationQuestion string                `json:"clarification_question,omitempty"`
	DeliveryMethod        models.DeliveryMethod `json:"delivery_method,omitempty"`
	WantsOrderChange      bool                  `json:"wants_order_change"`
	Source                string                `json:"source"`
}

type llmRoute struct {
	Agent                 string  `json:"agent"`
	Intent                string  `json:"intent"`
	Confidence            float64 `json:"confidence"`
	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question"`
	DeliveryMethod        string  `json:"delivery_method"`
	WantsOrderChange      bool    `json:"wants_order_change"`
}

var (
	cancelPhrases   = []string{"cancel", "nevermind", "never mind", "forget it", "forget about it", "start over", "stop"}
	finalizePhrases = []string{
		"thats it", "thats all", "im done", "thats everything", "nothing else", "no more",
		"im good", "that should do it", "lets proceed", "ready to order", "finish the order",
		"that completes", "thats enough", "done", "finish", "complete", "checkout", "check out", "pay",
		"place the order", "confirm",
	}
	acceptPhrases  = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "add that", "add it", "sounds good", "why not", "please do"}
	declinePhrases = []string{"no", "nope", "no thanks", "skip", "not interested", "pass", "im fine"}
	deliveryWords  = []string{"delivery", "deliver", "delivered", "bring it", "send it"}
	pickupWords    = []string{"pickup", "pick up", "pick it up", "takeaway", "take away", "collect", "come get"}
	summaryPhrases = []string{"my order", "total", "bill", "how much", "order status", "what did i order"}
	menuWords      = []string{"menu", "see", "show", "what", "have", "recommend", "options", "offer", "vegetarian", "vegan", "gluten", "popular", "special"}
	orderWords     = []string{"order", "want", "get", "buy", "take", "like", "add", "give me", "ill have"}
	modifyWords    = []string{"add", "more", "another", "also", "change", "remove"}
	questionStarts = []string{"what", "which", "does", "do", "is", "are", "how", "can you tell"}
	greetingWords  = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
)

// Router classifies each message and extracts the items it mentions
type Router struct {
	*BaseAgent
	menu   *models.Menu
	editor *OrderEditor
}

// NewRouter creates a router agent
func NewRouter(model llms.Model, menu *models.Menu, editor *OrderEditor, settings Settings, logger *zap.Logger, metrics MetricsRecorder) *Router {
	return &Router{
		BaseAgent: NewBaseAgent(RoleRouter, model, settings, logger, metrics),
		menu:      menu,
		editor:    editor,
	}
}

// Route decides which agent handles the input. The model is asked first and
// keyword rules take over when it is unavailable or returns nonsense.
func (r *Router) Route(ctx context.Context, state *models.SharedState, input string) RouteDecision {
	if decision, ok := r.routeWithLLM(ctx, state, input); ok {
		return decision
	}
	decision := r.fallback(state, input)
	r.logger.Debug("fallback routing",
		zap.String("agent", string(decision.Agent)),
		zap.String("intent", string(decision.Intent)),
	)
	return decision
}

func (r *Router) routeWithLLM(ctx context.Context, state *models.SharedState, input string) (RouteDecision, bool) {
	var out llmRoute
	if err := r.generateJSON(ctx, state, routerPrompt(state, input), &out); err != nil {
		return RouteDecision{}, false
	}

	intent, err := models.ParseIntent(strings.ToLower(strings.TrimSpace(out.Intent)))
	if err != nil {
		r.metrics.LLMFallback(string(r.role), "unknown_intent")
		return RouteDecision{}, false
	}
	agent, ok := ParseRole(out.Agent)
	if !ok {
		agent = agentForIntent(intent)
	}

	decision := RouteDecision{
		Agent:                 agent,
		Intent:                intent,
		Confidence:            out.Confidence,
		NeedsClarification:    out.NeedsClarification,
		ClarificationQuestion: out.ClarificationQuestion,
		WantsOrderChange:      out.WantsOrderChange,
		Source:                SourceLLM,
	}
	if method, err := models.ParseDeliveryMethod(out.DeliveryMethod); err == nil {
		decision.DeliveryMethod = method
	}
	if decision.NeedsClarification && decision.ClarificationQuestion == "" {
		decision.ClarificationQuestion = "Could you tell me a bit more about what you'd like?"
	}
	if intent == models.IntentPlaceOrder || intent == models.IntentModifyOrder {
		decision.Items = r.ExtractItems(ctx, state, input)
	}
	r.remember("route", string(intent), map[string]interface{}{"agent": string(agent), "source": SourceLLM})
	return decision, true
}

// ExtractItems pulls ordered items from the input, using the model when available
func (r *Router) ExtractItems(ctx context.Context, state *models.SharedState, input string) []ExtractedItem {
	max := r.settings.MaxOrderItems

	var out struct {
		Items []struct {
			Name           string   `json:"name"`
			Quantity       int      `json:"quantity"`
			Customizations []string `json:"customizations"`
		} `json:"items"`
	}
	if err := r.generateJSON(ctx, state, extractionPrompt(r.menu, input, max), &out); err != nil || len(out.Items) == 0 {
		return ExtractItems(r.menu, input, max)
	}

	items := make([]ExtractedItem, 0, len(out.Items))
	for _, raw := range out.Items {
		item := ExtractedItem{Name: raw.Name, Quantity: raw.Quantity, Customizations: raw.Customizations, Confidence: 0.5}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if found, score, ok := r.menu.Find(raw.Name); ok {
			item.Name, item.Price, item.Confidence = found.Name, found.Price, score
		}
		items = mergeExtracted(items, item)
	}
	if len(items) > max {
		items = items[:max]
	}
	return items
}

func agentForIntent(intent models.Intent) AgentRole {
	switch intent {
	case models.IntentPlaceOrder, models.IntentModifyOrder:
		return RoleOrder
	case models.IntentFinalizeOrder, models.IntentCancelOrder:
		return RoleFinalization
	case models.IntentDeliveryMethod:
		return RoleDelivery
	case models.IntentAcceptUpsell, models.IntentDeclineUpsell:
		return RoleUpselling
	}
	return RoleMenu
}

// fallback applies keyword rules to the message
func (r *Router) fallback(state *models.SharedState, input string) RouteDecision {
	text := normalize(input)
	max := r.settings.MaxOrderItems

	decide := func(agent AgentRole, intent models.Intent, confidence float64) RouteDecision {
		return RouteDecision{Agent: agent, Intent: intent, Confidence: confidence, Source: SourceFallback}
	}

	// Edits name a line in the order, so "cancel the burger" is not a full cancellation
	if r.editor != nil && r.editor.Recognize(state, input) {
		d := decide(RoleOrder, models.IntentModifyOrder, 0.8)
		d.WantsOrderChange = true
		return d
	}

	if containsAny(text, cancelPhrases) {
		d := decide(RoleFinalization, models.IntentCancelOrder, 0.8)
		d.WantsOrderChange = true
		return d
	}

	if state.Stage() == models.StageAwaitingDelivery {
		return r.fallbackDelivery(state, input, text, decide)
	}

	items := ExtractItems(r.menu, input, max)

	if len(items) == 0 && containsAny(text, finalizePhrases) {
		return decide(RoleFinalization, models.IntentFinalizeOrder, 0.8)
	}

	if state.Stage() == models.StageUpselling && len(items) == 0 {
		switch {
		case containsAny(text, declinePhrases):
			return decide(RoleUpselling, models.IntentDeclineUpsell, 0.8)
		case containsAny(text, acceptPhrases):
			return decide(RoleUpselling, models.IntentAcceptUpsell, 0.8)
		}
	}

	if len(items) > 0 {
		if isQuestion(text, input) {
			return decide(RoleMenu, models.IntentAskQuestion, 0.7)
		}
		d := decide(RoleOrder, models.IntentPlaceOrder, 0.8)
		d.Items = items
		return d
	}

	switch {
	case containsAny(text, summaryPhrases):
		return decide(RoleOrder, models.IntentAskQuestion, 0.7)
	case containsAny(text, menuWords):
		return decide(RoleMenu, models.IntentBrowseMenu, 0.6)
	case containsAny(text, orderWords):
		d := decide(RoleOrder, models.IntentUnclear, 0.5)
		d.NeedsClarification = true
		d.ClarificationQuestion = "What would you like to order? You can ask to see the menu anytime."
		return d
	case containsAny(text, greetingWords):
		return decide(RoleMenu, models.IntentAskQuestion, 0.6)
	}
	return decide(RoleMenu, models.IntentAskQuestion, 0.4)
}

func (r *Router) fallbackDelivery(state *models.SharedState, input, text string, decide func(AgentRole, models.Intent, float64) RouteDecision) RouteDecision {
	if items := ExtractItems(r.menu, input, r.settings.MaxOrderItems); len(items) > 0 || containsAny(text, modifyWords) {
		d := decide(RoleOrder, models.IntentModifyOrder, 0.7)
		d.Items = items
		d.WantsOrderChange = true
		return d
	}

	switch {
	case containsAny(text, pickupWords):
		d := decide(RoleDelivery, models.IntentDeliveryMethod, 0.8)
		d.DeliveryMethod = models.DeliveryMethodPickup
		return d
	case containsAny(text, deliveryWords):
		d := decide(RoleDelivery, models.IntentDeliveryMethod, 0.8)
		d.DeliveryMethod = models.DeliveryMethodDelivery
		return d
	}

	d := decide(RoleDelivery, models.IntentUnclear, 0.5)
	d.NeedsClarification = true
	d.ClarificationQuestion = "Would you like delivery or pickup?"
	return d
}

// Suggestions proposes up to five things the customer could say next
func (r *Router) Suggestions(ctx context.Context, state *models.SharedState) []string {
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := r.generateJSON(ctx, state, suggestionsPrompt(state), &out); err == nil && len(out.Suggestions) > 0 {
		return limit(out.Suggestions, 5)
	}

	switch state.Stage() {
	case models.StageGreeting:
		return []string{"Show me the menu", "What do you recommend?", "What's popular today?", "I'd like a Classic Burger"}
	case models.StageBrowsing:
		return []string{"I'd like the Margherita Pizza", "What vegetarian options do you have?", "What do you recommend?", "Show me the desserts"}
	case models.StageOrdering:
		return []string{"Add French Fries", "What's my total?", "Remove the last item", "That's all"}
	case models.StageUpselling:
		return []string{"Yes, add it", "No thanks", "That's all"}
	case models.StageFinalizing, models.StageAwaitingDelivery:
		return []string{"Delivery please", "I'll pick it up", "Add a Coca Cola"}
	}
	return []string{"Start a new order"}
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// normalize lowercases text and replaces punctuation with spaces, padding both ends
func normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '\'':
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

// containsAny matches whole words and phrases against normalized text
func containsAny(normalized string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(normalized, " "+p+" ") {
			return true
		}
	}
	return false
}

// isQuestion reports whether a message asks about items rather than ordering them
func isQuestion(normalized, raw string) bool {
	if containsAny(normalized, orderWords) {
		return false
	}
	if strings.Contains(raw, "?") {
		return true
	}
	for _, q := range questionStarts {
		if strings.HasPrefix(normalized, " "+q+" ") {
			return true
		}
	}
	return false
}
