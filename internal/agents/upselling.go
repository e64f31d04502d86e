package agents

import (
	"context"
	"fmt"
	"strings"

	"bistro/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// UpsellRule suggests items for orders containing a matching line.
// Match is a substring of the line name, or a category when Category is set.
type UpsellRule struct {
	Match       string
	Category    models.MenuCategory
	Suggestions []string
}

// DefaultUpsellRules pairs the default menu items
var DefaultUpsellRules = []UpsellRule{
	{Match: "burger", Suggestions: []string{"French Fries", "Onion Rings", "Coca Cola", "Chocolate Milkshake"}},
	{Match: "pizza", Suggestions: []string{"Garlic Bread", "Caesar Salad", "House Wine", "New York Cheesecake"}},
	{Match: "pasta", Suggestions: []string{"Garlic Bread", "House Wine", "Side Salad"}},
	{Match: "salad", Suggestions: []string{"Garlic Bread", "Iced Tea"}},
	{Category: models.MenuCategoryMain, Suggestions: []string{"Buffalo Wings", "New York Cheesecake", "Coca Cola"}},
}

// anyOrderSuggestions apply to every order
var anyOrderSuggestions = []string{"New York Cheesecake", "Coffee", "French Fries"}

// UpsellingAgent proposes add-ons that complement the order
type UpsellingAgent struct {
	*BaseAgent
	menu  *models.Menu
	rules []UpsellRule
}

// NewUpsellingAgent creates an upselling agent. Nil rules use DefaultUpsellRules.
func NewUpsellingAgent(model llms.Model, menu *models.Menu, rules []UpsellRule, settings Settings, logger *zap.Logger, metrics MetricsRecorder) *UpsellingAgent {
	if rules == nil {
		rules = DefaultUpsellRules
	}
	return &UpsellingAgent{
		BaseAgent: NewBaseAgent(RoleUpselling, model, settings, logger, metrics),
		menu:      menu,
		rules:     rules,
	}
}

func (u *UpsellingAgent) matches(rule UpsellRule, line models.OrderLine) bool {
	if rule.Category != "" {
		item, ok := u.menu.Get(line.Name)
		return ok && item.IsInCategory(rule.Category)
	}
	return strings.Contains(strings.ToLower(line.Name), strings.ToLower(rule.Match))
}

// Suggest returns up to UpsellingThreshold items not already ordered or declined
func (u *UpsellingAgent) Suggest(state *models.SharedState) []models.MenuItem {
	ledger := state.Ledger()
	candidates := make([]string, 0)
	for _, line := range ledger.Lines() {
		for _, rule := range u.rules {
			if u.matches(rule, line) {
				candidates = append(candidates, rule.Suggestions...)
			}
		}
	}
	candidates = append(candidates, anyOrderSuggestions...)

	seen := make(map[string]bool)
	out := make([]models.MenuItem, 0, u.settings.UpsellingThreshold)
	for _, name := range candidates {
		if len(out) == u.settings.UpsellingThreshold {
			break
		}
		key := strings.ToLower(name)
		if seen[key] || ledger.Contains(name) || state.IsDeclined(name) {
			continue
		}
		seen[key] = true
		item, ok := u.menu.Get(name)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// SuggestionMessage words a list of suggestions
func SuggestionMessage(items []models.MenuItem) string {
	if len(items) == 0 {
		return "Would you like to add a beverage or dessert to complete your meal?"
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return fmt.Sprintf("Based on your order, I'd recommend adding: %s. These items complement your selection perfectly!",
		strings.Join(names, ", "))
}

// Offer makes an upsell offer when attempts remain and something fits the order
func (u *UpsellingAgent) Offer(ctx context.Context, state *models.SharedState) (string, bool) {
	if state.Ledger().Empty() || !state.CanUpsell() {
		return "", false
	}
	suggestions := u.Suggest(state)
	if len(suggestions) == 0 {
		return "", false
	}

	message := SuggestionMessage(suggestions)
	if reply, err := u.generate(ctx, state, upsellPrompt(state, suggestions)); err == nil {
		message = reply
	}

	state.UpsellAttempts++
	state.SuggestedItems = make([]string, len(suggestions))
	for i, item := range suggestions {
		state.SuggestedItems[i] = item.Name
	}
	u.metrics.UpsellOffered()
	u.remember("offer", message, map[string]interface{}{"items": state.SuggestedItems})
	return message, true
}

// Respond applies the customer's answer to the last offer
func (u *UpsellingAgent) Respond(state *models.SharedState, accept bool, input string) (string, error) {
	suggested := state.SuggestedItems
	state.SuggestedItems = nil
	u.metrics.UpsellResponded(accept)

	if !accept {
		state.DeclinedSuggestions = append(state.DeclinedSuggestions, suggested...)
		return "No problem! Would you like anything else, or shall we proceed with your order?", nil
	}

	if len(suggested) == 0 {
		return "Excellent! What would you like to add?", nil
	}

	chosen := suggested[0]
pick:
	for _, mention := range u.menu.Mentions(input) {
		for _, name := range suggested {
			if mention.Item.Name == name {
				chosen = name
				break pick
			}
		}
	}

	item, ok := u.menu.Get(chosen)
	if !ok {
		return "", fmt.Errorf("suggested item %q is not on the menu", chosen)
	}
	if err := state.AddItem(models.OrderLine{Name: item.Name, Quantity: 1, UnitPrice: item.Price}); err != nil {
		return "", fmt.Errorf("failed to add %s: %w", item.Name, err)
	}

	return fmt.Sprintf("Great! I've added %s to your order.\n%s\nAnything else, or are you ready to finish your order?",
		item.Name, orderOverview(state)), nil
}

// UpsellValue is the combined menu price of the outstanding suggestions
func (u *UpsellingAgent) UpsellValue(state *models.SharedState) decimal.Decimal {
	total := decimal.Zero
	for _, name := range state.SuggestedItems {
		if item, ok := u.menu.Get(name); ok {
			total = total.Add(item.Price)
		}
	}
	return total
}
