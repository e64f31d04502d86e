package agents

import (
	"fmt"
	"strings"

	"bistro/internal/models"
)

const assistantPersona = "You are a friendly assistant taking orders for a restaurant. Keep replies short and conversational."

func routerPrompt(state *models.SharedState, input string) string {
	return fmt.Sprintf(`%s

Classify the customer's message and choose which agent handles it.

Conversation:
%s
Customer message: %q

Agents: menu, order, upselling, finalization, delivery, human.
Intents: browse_menu, place_order, modify_order, finalize_order, delivery_method, ask_question, unclear, cancel_order, accept_upsell, decline_upsell.

Respond with JSON only:
{"agent": "...", "intent": "...", "confidence": 0.0, "needs_clarification": false, "clarification_question": "", "delivery_method": "", "wants_order_change": false}`,
		assistantPersona, state.Summary(), input)
}

func extractionPrompt(menu *models.Menu, input string, max int) string {
	return fmt.Sprintf(`Extract the menu items the customer wants to order. Use exact menu names.
Return at most %d items.

Menu:
%s

Customer message: %q

Respond with JSON only:
{"items": [{"name": "...", "quantity": 1, "customizations": []}]}`,
		max, menu.Format(), input)
}

func editorPrompt(state *models.SharedState, input string) string {
	return fmt.Sprintf(`The customer wants to change their order.

Current order:
%s
Customer message: %q

Translate the request into operations. Valid actions: add, remove, set_quantity, decrease.
Respond with JSON only:
{"operations": [{"action": "...", "item": "...", "quantity": 1}]}`,
		models.FormatLines(state.Ledger().Lines()), input)
}

func menuQuestionPrompt(menu *models.Menu, state *models.SharedState, question string) string {
	return fmt.Sprintf(`%s

Answer the customer's question about the menu using only the items below.

%s

Conversation:
%s
Question: %q`,
		assistantPersona, menu.Format(), state.Summary(), question)
}

func upsellPrompt(state *models.SharedState, suggestions []models.MenuItem) string {
	names := make([]string, len(suggestions))
	for i, item := range suggestions {
		names[i] = fmt.Sprintf("%s (%s)", item.Name, models.FormatMoney(item.Price))
	}
	return fmt.Sprintf(`%s

The customer ordered:
%s
Suggest adding these items in one or two friendly sentences without being pushy: %s`,
		assistantPersona, models.FormatLines(state.Ledger().Lines()), strings.Join(names, ", "))
}

func suggestionsPrompt(state *models.SharedState) string {
	return fmt.Sprintf(`Given this conversation, list up to 5 short things the customer might say next.

%s
Respond with JSON only:
{"suggestions": ["..."]}`, state.Summary())
}
