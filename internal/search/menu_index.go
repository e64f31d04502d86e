package search

import (
	"fmt"
	"strings"
	"sync"

	"bistro/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Confidence reported by Best for fuzzy matches
const (
	ConfidenceClear     = 0.7
	ConfidenceUncertain = 0.5
)

// A hit must beat the runner-up by this factor to count as a clear match
const clearMargin = 1.25

// Hit is a menu item returned by a search
type Hit struct {
	Item  models.MenuItem
	Score float64
}

type menuDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Dietary     string `json:"dietary"`
}

// MenuIndex is an in-memory full text index over menu items with typo tolerance
type MenuIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	items map[string]models.MenuItem
}

// NewMenuIndex indexes every item of the menu
func NewMenuIndex(menu *models.Menu) (*MenuIndex, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create menu index: %w", err)
	}

	m := &MenuIndex{index: index, items: make(map[string]models.MenuItem)}
	for _, item := range menu.Items() {
		id := item.ID
		if id == "" {
			id = strings.ToLower(item.Name)
		}
		doc := menuDocument{
			Name:        item.Name,
			Description: item.Description,
			Category:    string(item.Category),
			Dietary:     strings.Join(item.Dietary, " "),
		}
		if err := index.Index(id, doc); err != nil {
			return nil, fmt.Errorf("failed to index menu item %s: %w", item.Name, err)
		}
		m.items[id] = item
	}
	return m, nil
}

// Search returns up to limit items matching the text, best first
func (m *MenuIndex) Search(text string, limit int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	req := bleve.NewSearchRequestOptions(buildQuery(text), limit, 0, false)

	m.mu.RLock()
	defer m.mu.RUnlock()

	result, err := m.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("menu search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		item, ok := m.items[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Item: item, Score: h.Score})
	}
	return hits, nil
}

// Best returns the single most likely item for a misspelt name with a confidence.
// A hit barely ahead of the runner-up gets the uncertain confidence.
func (m *MenuIndex) Best(text string) (models.MenuItem, float64, bool) {
	hits, err := m.Search(text, 2)
	if err != nil || len(hits) == 0 {
		return models.MenuItem{}, 0, false
	}
	if len(hits) == 1 || hits[0].Score >= hits[1].Score*clearMargin {
		return hits[0].Item, ConfidenceClear, true
	}
	return hits[0].Item, ConfidenceUncertain, true
}

// Close releases the index
func (m *MenuIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index.Close()
}

func buildQuery(text string) query.Query {
	name := bleve.NewMatchQuery(text)
	name.SetField("name")
	name.SetFuzziness(1)
	name.SetBoost(3)

	category := bleve.NewMatchQuery(text)
	category.SetField("category")
	category.SetFuzziness(1)
	category.SetBoost(2)

	description := bleve.NewMatchQuery(text)
	description.SetField("description")

	dietary := bleve.NewMatchQuery(text)
	dietary.SetField("dietary")

	return bleve.NewDisjunctionQuery(name, category, description, dietary)
}
