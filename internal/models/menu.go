package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MenuCategory represents the category of a menu item
type MenuCategory string

const (
	MenuCategoryAppetizer MenuCategory = "appetizers"
	MenuCategoryMain      MenuCategory = "mains"
	MenuCategorySide      MenuCategory = "sides"
	MenuCategoryDessert   MenuCategory = "desserts"
	MenuCategoryBeverage  MenuCategory = "beverages"
)

// MenuCategories lists categories in display order
var MenuCategories = []MenuCategory{
	MenuCategoryAppetizer,
	MenuCategoryMain,
	MenuCategorySide,
	MenuCategoryDessert,
	MenuCategoryBeverage,
}

// Dietary tags
const (
	DietVegetarian = "vegetarian"
	DietVegan      = "vegan"
	DietGlutenFree = "gluten-free"
	DietSpicy      = "spicy"
)

// MenuItem represents a dish on the menu
type MenuItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Category        MenuCategory    `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Dietary         []string        `json:"dietary,omitempty"`
	Popular         bool            `json:"popular,omitempty"`
	ChefRecommended bool            `json:"chef_recommended,omitempty"`
}

// HasDietary checks if the item carries a dietary tag
func (mi *MenuItem) HasDietary(tag string) bool {
	for _, t := range mi.Dietary {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IsInCategory checks if the item belongs to a specific category
func (mi *MenuItem) IsInCategory(category MenuCategory) bool {
	return mi.Category == category
}

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	if !item.Price.IsPositive() {
		return fmt.Errorf("menu item %s: price must be greater than 0", item.Name)
	}
	if item.Category == "" {
		return fmt.Errorf("menu item %s: category is required", item.Name)
	}
	return nil
}

// Match confidence levels used by Menu.Find
const (
	MatchExact     = 1.0
	MatchSubstring = 0.8
	MatchAlias     = 0.7
)

// Mention is a menu item referenced inside free text
type Mention struct {
	Item  MenuItem
	Start int
	End   int
}

type menuPattern struct {
	item    int
	phrase  string
	pattern *regexp.Regexp
}

// Menu is a read-only catalogue of items
type Menu struct {
	items    []MenuItem
	aliases  map[string]string
	patterns []menuPattern
}

// NewMenu builds a menu from items and a map of alias phrase to item name
func NewMenu(items []MenuItem, aliases map[string]string) (*Menu, error) {
	m := &Menu{
		items:   make([]MenuItem, 0, len(items)),
		aliases: make(map[string]string, len(aliases)),
	}

	index := make(map[string]int, len(items))
	for _, item := range items {
		if err := ValidateMenuItem(&item); err != nil {
			return nil, err
		}
		key := strings.ToLower(item.Name)
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("duplicate menu item: %s", item.Name)
		}
		index[key] = len(m.items)
		m.items = append(m.items, item)
		m.patterns = append(m.patterns, newMenuPattern(len(m.items)-1, key))
	}

	for alias, name := range aliases {
		idx, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("alias %q points at unknown item %q", alias, name)
		}
		m.aliases[strings.ToLower(alias)] = m.items[idx].Name
		m.patterns = append(m.patterns, newMenuPattern(idx, strings.ToLower(alias)))
	}

	// Longer phrases win so "veggie burger" is not read as "burger"
	sort.SliceStable(m.patterns, func(i, j int) bool {
		return len(m.patterns[i].phrase) > len(m.patterns[j].phrase)
	})

	return m, nil
}

func newMenuPattern(item int, phrase string) menuPattern {
	return menuPattern{
		item:    item,
		phrase:  phrase,
		pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `(?:e?s)?\b`),
	}
}

// Items returns every item on the menu
func (m *Menu) Items() []MenuItem {
	return append([]MenuItem(nil), m.items...)
}

// Get returns the item with exactly this name, ignoring case
func (m *Menu) Get(name string) (MenuItem, bool) {
	for _, item := range m.items {
		if strings.EqualFold(item.Name, strings.TrimSpace(name)) {
			return item, true
		}
	}
	return MenuItem{}, false
}

// Find resolves a free-form item name: exact first, then substring, then aliases
func (m *Menu) Find(query string) (MenuItem, float64, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return MenuItem{}, 0, false
	}

	if item, ok := m.Get(q); ok {
		return item, MatchExact, true
	}

	for _, item := range m.items {
		name := strings.ToLower(item.Name)
		if strings.Contains(q, name) || (len(q) >= 4 && strings.Contains(name, q)) {
			return item, MatchSubstring, true
		}
	}

	for _, p := range m.patterns {
		if _, isAlias := m.aliases[p.phrase]; isAlias && p.pattern.MatchString(q) {
			return m.items[p.item], MatchAlias, true
		}
	}

	return MenuItem{}, 0, false
}

// Mentions finds every menu item referenced in text, in order of appearance
func (m *Menu) Mentions(text string) []Mention {
	lower := strings.ToLower(text)
	taken := make([]bool, len(lower))
	mentions := make([]Mention, 0)

	for _, p := range m.patterns {
		for _, loc := range p.pattern.FindAllStringIndex(lower, -1) {
			if overlaps(taken, loc[0], loc[1]) {
				continue
			}
			for i := loc[0]; i < loc[1]; i++ {
				taken[i] = true
			}
			mentions = append(mentions, Mention{Item: m.items[p.item], Start: loc[0], End: loc[1]})
		}
	}

	sort.Slice(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })
	return mentions
}

func overlaps(taken []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if taken[i] {
			return true
		}
	}
	return false
}

// ByCategory returns the items of one category
func (m *Menu) ByCategory(category MenuCategory) []MenuItem {
	return m.filter(func(item MenuItem) bool { return item.IsInCategory(category) })
}

// Dietary returns the items carrying a dietary tag
func (m *Menu) Dietary(tag string) []MenuItem {
	return m.filter(func(item MenuItem) bool { return item.HasDietary(tag) })
}

// Popular returns the most ordered items
func (m *Menu) Popular() []MenuItem {
	return m.filter(func(item MenuItem) bool { return item.Popular })
}

// ChefRecommendations returns the chef's picks
func (m *Menu) ChefRecommendations() []MenuItem {
	return m.filter(func(item MenuItem) bool { return item.ChefRecommended })
}

func (m *Menu) filter(keep func(MenuItem) bool) []MenuItem {
	out := make([]MenuItem, 0)
	for _, item := range m.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Format renders the whole menu grouped by category
func (m *Menu) Format() string {
	var b strings.Builder
	b.WriteString("Here's our menu:\n")
	for _, category := range MenuCategories {
		items := m.ByCategory(category)
		if len(items) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(strings.ToUpper(string(category)))
		b.WriteString("\n")
		b.WriteString(FormatMenuItems(items))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatMenuItems renders items one per line
func FormatMenuItems(items []MenuItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%s): %s", item.Name, FormatMoney(item.Price), item.Description)
		if len(item.Dietary) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(item.Dietary, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
