package agents

import (
	"context"
	"fmt"
	"strings"

	"bistro/internal/models"
	"bistro/internal/search"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// GreetingMessage opens every conversation
const GreetingMessage = "Welcome to AI Bistro! I'm your personal dining assistant. " +
	"I can show you our menu, take your order with customizations and suggest perfect pairings. " +
	"Would you like to see our menu to get started?"

var categoryWords = []struct {
	word     string
	category models.MenuCategory
}{
	{"appetizer", models.MenuCategoryAppetizer},
	{"starter", models.MenuCategoryAppetizer},
	{"main", models.MenuCategoryMain},
	{"entree", models.MenuCategoryMain},
	{"side", models.MenuCategorySide},
	{"dessert", models.MenuCategoryDessert},
	{"sweet", models.MenuCategoryDessert},
	{"drink", models.MenuCategoryBeverage},
	{"beverage", models.MenuCategoryBeverage},
}

var dietaryWords = []struct {
	word string
	tag  string
}{
	{"vegetarian", models.DietVegetarian},
	{"vegan", models.DietVegan},
	{"gluten free", models.DietGlutenFree},
	{"spicy", models.DietSpicy},
}

var recommendWords = []string{"recommend", "recommendation", "recommendations", "suggest", "popular", "best", "special", "specials", "favorite", "favourite"}

// MenuAgent answers everything about the menu
type MenuAgent struct {
	*BaseAgent
	menu  *models.Menu
	index *search.MenuIndex
}

// NewMenuAgent creates a menu agent. The search index is optional.
func NewMenuAgent(model llms.Model, menu *models.Menu, index *search.MenuIndex, settings Settings, logger *zap.Logger, metrics MetricsRecorder) *MenuAgent {
	return &MenuAgent{
		BaseAgent: NewBaseAgent(RoleMenu, model, settings, logger, metrics),
		menu:      menu,
		index:     index,
	}
}

// Handle answers a message routed to the menu agent
func (m *MenuAgent) Handle(ctx context.Context, state *models.SharedState, decision RouteDecision, input string) string {
	text := normalize(input)

	if len(m.menu.Mentions(input)) > 0 {
		return m.Answer(ctx, state, input)
	}
	if tag, ok := detectDietary(text); ok {
		return m.ByDietary(tag)
	}
	if category, ok := detectCategory(text); ok {
		return m.Category(category)
	}

	switch {
	case decision.Intent == models.IntentBrowseMenu && !containsAny(text, recommendWords):
		return m.Display(state)
	case containsAny(text, recommendWords):
		return m.Recommendations()
	}
	return m.Answer(ctx, state, input)
}

// Display shows the full menu
func (m *MenuAgent) Display(state *models.SharedState) string {
	state.MenuDisplayed = true
	return m.menu.Format() + "\n\nWhat would you like to order?"
}

// Category lists the items of one category
func (m *MenuAgent) Category(category models.MenuCategory) string {
	items := m.menu.ByCategory(category)
	if len(items) == 0 {
		return fmt.Sprintf("We don't have any %s right now.", category)
	}
	return fmt.Sprintf("Here are our %s:\n%s", category, strings.TrimRight(models.FormatMenuItems(items), "\n"))
}

// ByDietary lists the items carrying a dietary tag
func (m *MenuAgent) ByDietary(tag string) string {
	items := m.menu.Dietary(tag)
	if len(items) == 0 {
		return fmt.Sprintf("I'm sorry, we don't have any %s items at the moment.", tag)
	}
	return fmt.Sprintf("Here are our %s options:\n%s", tag, strings.TrimRight(models.FormatMenuItems(items), "\n"))
}

// Recommendations lists the chef's picks and the most popular items
func (m *MenuAgent) Recommendations() string {
	var b strings.Builder
	b.WriteString("CHEF'S RECOMMENDATIONS\n")
	b.WriteString(models.FormatMenuItems(m.menu.ChefRecommendations()))
	b.WriteString("\nPOPULAR ITEMS\n")
	b.WriteString(models.FormatMenuItems(m.menu.Popular()))
	return strings.TrimRight(b.String(), "\n")
}

// Search finds menu items by free text, tolerating typos when an index is present
func (m *MenuAgent) Search(query string, limit int) []models.MenuItem {
	if m.index != nil {
		hits, err := m.index.Search(query, limit)
		if err == nil {
			items := make([]models.MenuItem, len(hits))
			for i, h := range hits {
				items[i] = h.Item
			}
			return items
		}
		m.logger.Warn("menu search failed", zap.String("query", query), zap.Error(err))
	}

	if item, _, ok := m.menu.Find(query); ok {
		return []models.MenuItem{item}
	}
	return nil
}

// Answer replies to a question about the menu
func (m *MenuAgent) Answer(ctx context.Context, state *models.SharedState, question string) string {
	if reply, err := m.generate(ctx, state, menuQuestionPrompt(m.menu, state, question)); err == nil {
		return reply
	}

	text := normalize(question)
	if mentions := m.menu.Mentions(question); len(mentions) > 0 {
		return describeItem(mentions[0].Item)
	}
	if containsAny(text, greetingWords) || strings.TrimSpace(text) == "" {
		return GreetingMessage
	}
	if items := m.Search(question, 3); len(items) > 0 {
		return "You might like:\n" + strings.TrimRight(models.FormatMenuItems(items), "\n") +
			"\n\nWould you like to add any of these to your order?"
	}
	if !state.MenuDisplayed {
		return m.Display(state)
	}
	return "I'm not sure I understood. You can ask about any dish, or tell me what you'd like to order."
}

func describeItem(item models.MenuItem) string {
	msg := fmt.Sprintf("%s (%s): %s.", item.Name, models.FormatMoney(item.Price), item.Description)
	if len(item.Dietary) > 0 {
		msg += fmt.Sprintf(" It is %s.", strings.Join(item.Dietary, ", "))
	}
	return msg + " Would you like to order it?"
}

func detectDietary(normalized string) (string, bool) {
	for _, d := range dietaryWords {
		if strings.Contains(normalized, " "+d.word+" ") {
			return d.tag, true
		}
	}
	return "", false
}

func detectCategory(normalized string) (models.MenuCategory, bool) {
	for _, c := range categoryWords {
		if containsAny(normalized, []string{c.word, c.word + "s"}) {
			return c.category, true
		}
	}
	return "", false
}
