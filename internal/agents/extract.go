package agents

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"bistro/internal/models"

	"github.com/shopspring/decimal"
)

// ExtractedItem is an item the customer asked for, resolved against the menu
type ExtractedItem struct {
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	Customizations []string        `json:"customizations,omitempty"`
	Confidence     float64         `json:"confidence"`
	Price          decimal.Decimal `json:"price"`
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "another": 1, "single": 1,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var customizationRe = regexp.MustCompile(`\b(with|without|no|extra)\s+([a-z][a-z\s-]*?)(?:\s+and\b|\s+with\b|\s*[,.;!?]|$)`)

// parseQuantity reads a digit string or number word between 1 and MaxItemQuantity
func parseQuantity(word string) (int, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if n, ok := numberWords[word]; ok {
		return n, true
	}
	if n, err := strconv.Atoi(word); err == nil && n > 0 && n <= models.MaxItemQuantity {
		return n, true
	}
	return 0, false
}

// quantityBefore reads the quantity in front of an item mention, defaulting to one.
// A number over the line limit stays over it so the order rejects the item.
func quantityBefore(word string) int {
	if n, ok := parseQuantity(word); ok {
		return n
	}
	n, err := strconv.Atoi(word)
	if errors.Is(err, strconv.ErrRange) || (err == nil && n > models.MaxItemQuantity) {
		return models.MaxItemQuantity + 1
	}
	return 1
}

// ExtractItems finds the menu items mentioned in text with their quantities and
// customizations. At most max distinct lines are returned.
func ExtractItems(menu *models.Menu, text string, max int) []ExtractedItem {
	lower := strings.ToLower(text)
	mentions := menu.Mentions(lower)
	items := make([]ExtractedItem, 0, len(mentions))

	for i, m := range mentions {
		prevEnd := 0
		if i > 0 {
			prevEnd = mentions[i-1].End
		}
		nextStart := len(lower)
		if i+1 < len(mentions) {
			nextStart = mentions[i+1].Start
		}

		quantity := 1
		if words := strings.Fields(lower[prevEnd:m.Start]); len(words) > 0 {
			quantity = quantityBefore(words[len(words)-1])
		}

		item := ExtractedItem{
			Name:           m.Item.Name,
			Quantity:       quantity,
			Customizations: parseCustomizations(lower[m.End:nextStart]),
			Confidence:     models.MatchSubstring,
			Price:          m.Item.Price,
		}
		items = mergeExtracted(items, item)
	}

	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

func parseCustomizations(segment string) []string {
	var out []string
	for _, m := range customizationRe.FindAllStringSubmatch(segment, -1) {
		what := strings.TrimSpace(m[2])
		if what == "" {
			continue
		}
		switch m[1] {
		case "with":
			out = append(out, what)
		case "without", "no":
			out = append(out, "no "+strings.TrimPrefix(what, "no "))
		case "extra":
			out = append(out, "extra "+what)
		}
	}
	return out
}

func mergeExtracted(items []ExtractedItem, item ExtractedItem) []ExtractedItem {
	for i := range items {
		if items[i].Name == item.Name && strings.Join(items[i].Customizations, "|") == strings.Join(item.Customizations, "|") {
			items[i].Quantity += item.Quantity
			return items
		}
	}
	return append(items, item)
}
