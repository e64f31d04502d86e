package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bistro/internal/models"
	"bistro/internal/search"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Items resolved below this confidence are reported back instead of added
const addConfidenceThreshold = 0.6

// AddResult reports the outcome of adding extracted items
type AddResult struct {
	Added              []models.OrderLine
	Failed             []string
	OverLimit          []string
	Message            string
	NeedsClarification bool
}

// OrderSummary is the customer facing view of the order
type OrderSummary struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Items   []models.LineView `json:"items"`
	Totals  models.Totals     `json:"totals"`
}

// OrderAgent owns the order ledger on behalf of the customer
type OrderAgent struct {
	*BaseAgent
	menu   *models.Menu
	index  *search.MenuIndex
	editor *OrderEditor
}

// NewOrderAgent creates an order agent. The search index is optional.
func NewOrderAgent(model llms.Model, menu *models.Menu, index *search.MenuIndex, editor *OrderEditor, settings Settings, logger *zap.Logger, metrics MetricsRecorder) *OrderAgent {
	return &OrderAgent{
		BaseAgent: NewBaseAgent(RoleOrder, model, settings, logger, metrics),
		menu:      menu,
		index:     index,
		editor:    editor,
	}
}

// resolve matches an extracted name to a menu item: exact, substring, alias, then fuzzy
func (o *OrderAgent) resolve(name string) (models.MenuItem, float64, bool) {
	if item, score, ok := o.menu.Find(name); ok {
		return item, score, true
	}
	if o.index != nil {
		if item, score, ok := o.index.Best(name); ok {
			return item, score, true
		}
	}
	return models.MenuItem{}, 0, false
}

// AddItems adds every item that resolves to the menu with enough confidence
func (o *OrderAgent) AddItems(state *models.SharedState, items []ExtractedItem) (AddResult, error) {
	var result AddResult

	if len(items) == 0 {
		result.NeedsClarification = true
		result.Message = "What would you like to order? You can ask to see the menu anytime."
		return result, nil
	}
	if max := o.settings.MaxOrderItems; len(items) > max {
		items = items[:max]
	}

	for _, extracted := range items {
		item, confidence, ok := o.resolve(extracted.Name)
		if !ok || confidence <= addConfidenceThreshold {
			result.Failed = append(result.Failed, extracted.Name)
			continue
		}

		quantity := extracted.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		line := models.OrderLine{
			Name:           item.Name,
			Quantity:       quantity,
			UnitPrice:      item.Price,
			Customizations: extracted.Customizations,
		}
		if err := state.AddItem(line); err != nil {
			if errors.Is(err, models.ErrInvalidQuantity) {
				result.OverLimit = append(result.OverLimit, item.Name)
				continue
			}
			return result, fmt.Errorf("failed to add %s: %w", item.Name, err)
		}
		result.Added = append(result.Added, line)
	}

	switch {
	case len(result.Added) > 0 && len(result.Failed) > 0:
		result.NeedsClarification = true
		result.Message = fmt.Sprintf("I've added %d item(s) to your order, but couldn't find %d item(s): %s.",
			len(result.Added), len(result.Failed), strings.Join(result.Failed, ", "))
	case len(result.Added) > 0:
		result.Message = fmt.Sprintf("Great! I've added %d item(s) to your order.", len(result.Added))
	case len(result.Failed) > 0:
		result.NeedsClarification = true
		result.Message = "I couldn't find any of those items on our menu. Would you like to see our menu?"
	}
	if len(result.OverLimit) > 0 {
		result.NeedsClarification = true
		note := fmt.Sprintf("I can only take up to %d of each item, so I left out: %s.",
			models.MaxItemQuantity, strings.Join(result.OverLimit, ", "))
		result.Message = strings.TrimSpace(result.Message + " " + note)
	}
	if len(result.Added) > 0 {
		result.Message += "\n" + orderOverview(state)
	}

	o.remember("add", result.Message, map[string]interface{}{
		"added":      len(result.Added),
		"failed":     len(result.Failed),
		"over_limit": len(result.OverLimit),
	})
	return result, nil
}

// Modify changes the order. Quick edits go through the editor and new items are added.
func (o *OrderAgent) Modify(ctx context.Context, state *models.SharedState, decision RouteDecision, input string) (string, error) {
	if o.editor != nil {
		if edit := o.editor.Edit(ctx, state, input); edit.Matched {
			return edit.Message, nil
		}
	}

	if len(decision.Items) > 0 {
		result, err := o.AddItems(state, decision.Items)
		if err != nil {
			return "", err
		}
		return result.Message, nil
	}

	if o.editor != nil && !state.Ledger().Empty() {
		return o.editor.delegate(ctx, state, input, EditResult{}, nil).Message, nil
	}
	return "I'd be happy to help modify your order. What changes would you like to make?", nil
}

// Summary returns the order lines and derived totals
func (o *OrderAgent) Summary(state *models.SharedState) OrderSummary {
	summary := OrderSummary{
		Status:  "active",
		Message: "Here is your current order:",
		Items:   state.Views(),
		Totals:  state.Totals(),
	}
	if state.Ledger().Empty() {
		summary.Status = "empty"
		summary.Message = "Your order is currently empty."
	}
	return summary
}

// FormatSummary renders the order with subtotal, tax and total
func (o *OrderAgent) FormatSummary(state *models.SharedState) string {
	summary := o.Summary(state)
	if summary.Status == "empty" {
		return summary.Message + " Would you like to see our menu?"
	}

	var b strings.Builder
	b.WriteString(summary.Message)
	b.WriteString("\n")
	b.WriteString(models.FormatLines(state.Ledger().Lines()))
	fmt.Fprintf(&b, "Subtotal: %s\n", models.FormatMoney(summary.Totals.Subtotal))
	fmt.Fprintf(&b, "Tax: %s\n", models.FormatMoney(summary.Totals.Tax))
	fmt.Fprintf(&b, "Total: %s", models.FormatMoney(summary.Totals.Total))
	return b.String()
}

// Validate reports whether the order can be finalised
func (o *OrderAgent) Validate(state *models.SharedState) error {
	if state.Ledger().Empty() {
		return models.ErrEmptyOrder
	}
	if !state.Totals().Total.IsPositive() {
		return fmt.Errorf("order total must be positive")
	}
	return nil
}
