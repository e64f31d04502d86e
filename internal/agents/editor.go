package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"bistro/internal/models"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// EditAction is a deterministic change to the order
type EditAction string

const (
	EditAdd         EditAction = "add"
	EditRemove      EditAction = "remove"
	EditDecrease    EditAction = "decrease"
	EditSetQuantity EditAction = "set_quantity"
)

// Edits at or above this confidence are applied without asking the model
const EditConfidenceThreshold = 0.7

// Confidence for edits whose target could not be pinned to one order line
const editAmbiguous = 0.4

// EditOp is one order change
type EditOp struct {
	Action   EditAction `json:"action"`
	Item     string     `json:"item"`
	Quantity int        `json:"quantity"`
}

// EditResult describes what the editor did with a message
type EditResult struct {
	Matched    bool
	Applied    bool
	Delegated  bool
	Op         EditOp
	Confidence float64
	Message    string
}

type editPattern struct {
	action  EditAction
	re      *regexp.Regexp
	qtyIdx  int
	itemIdx int
}

const qtyPattern = `(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten)`

var editPatterns = []editPattern{
	{EditSetQuantity, regexp.MustCompile(`\b(?:change|update|set|make)\s+(?:the\s+|my\s+)?(.+?)\s+(?:to|into)\s+` + qtyPattern + `\b`), 2, 1},
	{EditSetQuantity, regexp.MustCompile(`\bmake\s+(?:that|it)\s+` + qtyPattern + `\s+(.+)`), 1, 2},
	{EditSetQuantity, regexp.MustCompile(`^(?:just|only)\s+` + qtyPattern + `\s+(.+)`), 1, 2},
	{EditDecrease, regexp.MustCompile(`\b(?:remove|delete|drop|take off|take out)\s+` + qtyPattern + `\s+(.+)`), 1, 2},
	{EditRemove, regexp.MustCompile(`\b(?:remove|delete|drop|cancel|take off|take out|get rid of)\s+(?:all\s+)?(?:of\s+)?(?:the\s+|my\s+)?(.+)`), 0, 1},
	{EditRemove, regexp.MustCompile(`\btake\s+(?:the\s+|my\s+)?(.+?)\s+(?:off|out)\b`), 0, 1},
	{EditRemove, regexp.MustCompile(`\bno more\s+(.+)`), 0, 1},
	{EditRemove, regexp.MustCompile(`\b(?:dont|do not)\s+want\s+(?:the\s+|any\s+|my\s+)?(.+)`), 0, 1},
	{EditAdd, regexp.MustCompile(`\banother\s+(.+)`), 0, 1},
	{EditAdd, regexp.MustCompile(`\b` + qtyPattern + `\s+more\s+(.+)`), 1, 2},
}

var trailingNoise = regexp.MustCompile(`\s+(?:instead.*|please|from (?:my|the) order.*|off (?:my|the) order.*|too|as well)$`)

// OrderEditor applies quick order changes from regex commands, asking the model only
// when the target is unclear
type OrderEditor struct {
	*BaseAgent
	menu *models.Menu
}

// NewOrderEditor creates a deterministic order editor
func NewOrderEditor(model llms.Model, menu *models.Menu, settings Settings, logger *zap.Logger, metrics MetricsRecorder) *OrderEditor {
	return &OrderEditor{
		BaseAgent: NewBaseAgent(RoleEditor, model, settings, logger, metrics),
		menu:      menu,
	}
}

// Parse recognises an edit command in text
func (e *OrderEditor) Parse(text string) (EditOp, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimRight(lower, ".!?")

	for _, p := range editPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		op := EditOp{Action: p.action, Item: cleanItemPhrase(m[p.itemIdx]), Quantity: 1}
		if p.qtyIdx > 0 {
			n, ok := parseQuantity(m[p.qtyIdx])
			if !ok {
				continue
			}
			op.Quantity = n
		}
		if op.Item == "" {
			continue
		}
		return op, true
	}
	return EditOp{}, false
}

func cleanItemPhrase(s string) string {
	s = strings.TrimSpace(trailingNoise.ReplaceAllString(strings.TrimSpace(s), ""))
	for _, article := range []string{"the ", "my ", "a ", "an ", "of "} {
		s = strings.TrimPrefix(s, article)
	}
	return strings.TrimSpace(s)
}

// Recognize reports whether text is an edit command aimed at something in the order
func (e *OrderEditor) Recognize(state *models.SharedState, text string) bool {
	if state.Ledger().Empty() {
		return false
	}
	op, ok := e.Parse(text)
	if !ok {
		return false
	}
	if op.Action == EditAdd {
		return len(e.menu.Mentions(op.Item)) > 0
	}
	name, _, candidates := e.resolve(state.Ledger(), op.Item)
	return name != "" || len(candidates) > 1
}

// resolve finds the order line a phrase refers to. It returns the line name,
// the confidence and every candidate line name.
func (e *OrderEditor) resolve(ledger *models.Ledger, phrase string) (string, float64, []string) {
	names := ledger.Names()
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	singular := strings.TrimSuffix(strings.TrimSuffix(phrase, "s"), "e")

	for _, name := range names {
		lower := strings.ToLower(name)
		if lower == phrase || lower+"s" == phrase || lower+"es" == phrase {
			return name, models.MatchExact, []string{name}
		}
	}

	candidates := make([]string, 0)
	for _, name := range names {
		lower := strings.ToLower(name)
		if (len(singular) >= 3 && strings.Contains(lower, singular)) || strings.Contains(phrase, lower) {
			candidates = append(candidates, name)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], models.MatchSubstring, candidates
	case 0:
	default:
		return "", editAmbiguous, candidates
	}

	for _, mention := range e.menu.Mentions(phrase) {
		if ledger.Contains(mention.Item.Name) {
			return mention.Item.Name, models.MatchSubstring, []string{mention.Item.Name}
		}
	}
	return "", editAmbiguous, nil
}

// Edit parses and applies an edit command. An unmatched message returns a zero result.
func (e *OrderEditor) Edit(ctx context.Context, state *models.SharedState, input string) EditResult {
	op, ok := e.Parse(input)
	if !ok {
		return EditResult{}
	}

	result := EditResult{Matched: true, Op: op}
	name, confidence, candidates := e.resolve(state.Ledger(), op.Item)
	if op.Action == EditAdd && name == "" {
		if item, score, found := e.menu.Find(op.Item); found {
			name, confidence, candidates = item.Name, score, []string{item.Name}
		}
	}
	result.Confidence = confidence

	if confidence >= EditConfidenceThreshold {
		result.Op.Item = name
		err := e.apply(state, result.Op)
		switch {
		case err == nil:
			result.Applied = true
			result.Message = e.confirm(state, result.Op)
			e.remember("edit", string(op.Action), map[string]interface{}{"item": name, "quantity": op.Quantity})
			return result
		case errors.Is(err, models.ErrLedgerFrozen):
			result.Message = "Your order has already been placed and can no longer be changed."
			return result
		case errors.Is(err, models.ErrAmbiguousItem):
			candidates = lineLabels(linesNamed(state.Ledger(), name))
		default:
			e.logger.Debug("direct edit failed", zap.String("item", name), zap.Error(err))
		}
	}

	return e.delegate(ctx, state, input, result, candidates)
}

// delegate asks the model for edit operations, falling back to a clarification
func (e *OrderEditor) delegate(ctx context.Context, state *models.SharedState, input string, result EditResult, candidates []string) EditResult {
	var reply struct {
		Operations []EditOp `json:"operations"`
	}
	if err := e.generateJSON(ctx, state, editorPrompt(state, input), &reply); err == nil {
		applied := 0
		for _, op := range reply.Operations {
			if op.Quantity <= 0 && op.Action != EditRemove {
				op.Quantity = 1
			}
			if line, ok := e.menu.Get(op.Item); ok {
				op.Item = line.Name
			}
			if err := e.apply(state, op); err != nil {
				e.logger.Debug("delegated edit rejected", zap.String("item", op.Item), zap.Error(err))
				continue
			}
			applied++
		}
		if applied > 0 {
			result.Applied = true
			result.Delegated = true
			result.Message = "I've updated your order.\n" + orderOverview(state)
			return result
		}
	}

	result.Message = e.clarify(state, candidates)
	return result
}

func (e *OrderEditor) apply(state *models.SharedState, op EditOp) error {
	ledger := state.Ledger()
	switch op.Action {
	case EditRemove:
		return state.RemoveItem(op.Item)
	case EditDecrease:
		return ledger.Decrease(op.Item, op.Quantity)
	case EditSetQuantity:
		return ledger.SetQuantity(op.Item, op.Quantity)
	case EditAdd:
		line := models.OrderLine{Name: op.Item, Quantity: op.Quantity}
		if existing := linesNamed(ledger, op.Item); len(existing) == 1 {
			line.UnitPrice = existing[0].UnitPrice
			line.Customizations = existing[0].Customizations
		} else if item, ok := e.menu.Get(op.Item); ok {
			line.Name = item.Name
			line.UnitPrice = item.Price
		} else {
			return models.ErrItemNotFound
		}
		return state.AddItem(line)
	}
	return fmt.Errorf("unknown edit action: %s", op.Action)
}

func linesNamed(ledger *models.Ledger, name string) []models.OrderLine {
	out := make([]models.OrderLine, 0)
	for _, line := range ledger.Lines() {
		if strings.EqualFold(line.Name, name) {
			out = append(out, line)
		}
	}
	return out
}

// lineLabels names each line with its customizations so the customer can tell them apart
func lineLabels(lines []models.OrderLine) []string {
	labels := make([]string, 0, len(lines))
	for _, line := range lines {
		label := line.Name
		if len(line.Customizations) > 0 {
			label += " (" + strings.Join(line.Customizations, ", ") + ")"
		}
		labels = append(labels, label)
	}
	return labels
}

func (e *OrderEditor) confirm(state *models.SharedState, op EditOp) string {
	var msg string
	switch op.Action {
	case EditRemove:
		msg = fmt.Sprintf("I've removed %s from your order.", op.Item)
	case EditDecrease:
		msg = fmt.Sprintf("I've removed %d %s from your order.", op.Quantity, op.Item)
	case EditSetQuantity:
		msg = fmt.Sprintf("I've updated %s to %d.", op.Item, op.Quantity)
	case EditAdd:
		msg = fmt.Sprintf("I've added %d more %s to your order.", op.Quantity, op.Item)
	}
	if state.Ledger().Empty() {
		return msg + " Your order is now empty."
	}
	return msg + "\n" + orderOverview(state)
}

func (e *OrderEditor) clarify(state *models.SharedState, candidates []string) string {
	if len(candidates) > 1 {
		return fmt.Sprintf("Which one do you mean: %s?", strings.Join(candidates, " or "))
	}
	if state.Ledger().Empty() {
		return "Your order is empty, so there is nothing to change yet."
	}
	return "I'm not sure which item you'd like to change. Your current order is:\n" +
		models.FormatLines(state.Ledger().Lines()) +
		"Which item would you like to change?"
}

// orderOverview lists the order with its total
func orderOverview(state *models.SharedState) string {
	totals := state.Totals()
	return models.FormatLines(state.Ledger().Lines()) + fmt.Sprintf("Total: %s", models.FormatMoney(totals.Total))
}
