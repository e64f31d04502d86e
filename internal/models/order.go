package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxItemQuantity caps the quantity of a single order line
const MaxItemQuantity = 99

// Ledger errors
var (
	ErrLedgerFrozen    = errors.New("order is completed and can no longer be changed")
	ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", MaxItemQuantity)
	ErrNegativePrice   = errors.New("unit price must not be negative")
	ErrInvalidItem     = errors.New("item name is required")
	ErrItemNotFound    = errors.New("item not found in order")
	ErrAmbiguousItem   = errors.New("more than one order line matches the item")
)

// OrderStatus represents the lifecycle of a customer order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderLine is a single item entry of an order
type OrderLine struct {
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Customizations []string        `json:"customizations,omitempty"`
}

// LineTotal returns unit price times quantity
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// sameItem reports whether two lines describe the same item with the same customizations
func (l OrderLine) sameItem(other OrderLine) bool {
	if !strings.EqualFold(strings.TrimSpace(l.Name), strings.TrimSpace(other.Name)) {
		return false
	}
	if len(l.Customizations) != len(other.Customizations) {
		return false
	}
	for i := range l.Customizations {
		if !strings.EqualFold(l.Customizations[i], other.Customizations[i]) {
			return false
		}
	}
	return true
}

func (l OrderLine) validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrInvalidItem
	}
	if l.Quantity <= 0 || l.Quantity > MaxItemQuantity {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Ledger is the ordered list of lines in the current order.
// Totals are never stored, they are derived from the lines on every read.
type Ledger struct {
	lines  []OrderLine
	frozen bool
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{lines: make([]OrderLine, 0)}
}

// Add appends a line, merging it into an existing line with the same name and customizations
func (l *Ledger) Add(line OrderLine) error {
	if l.frozen {
		return ErrLedgerFrozen
	}
	if err := line.validate(); err != nil {
		return err
	}

	for i := range l.lines {
		if l.lines[i].sameItem(line) {
			if l.lines[i].Quantity > MaxItemQuantity-line.Quantity {
				return ErrInvalidQuantity
			}
			l.lines[i].Quantity += line.Quantity
			return nil
		}
	}

	line.Name = strings.TrimSpace(line.Name)
	line.Customizations = append([]string(nil), line.Customizations...)
	l.lines = append(l.lines, line)
	return nil
}

// Remove deletes every line of the named item
func (l *Ledger) Remove(name string) error {
	if l.frozen {
		return ErrLedgerFrozen
	}

	kept := l.lines[:0]
	removed := false
	for _, line := range l.lines {
		if strings.EqualFold(line.Name, strings.TrimSpace(name)) {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	l.lines = kept

	if !removed {
		return ErrItemNotFound
	}
	return nil
}

// Decrease removes n units of the named item, deleting the line when it reaches zero
func (l *Ledger) Decrease(name string, n int) error {
	if l.frozen {
		return ErrLedgerFrozen
	}
	if n <= 0 {
		return ErrInvalidQuantity
	}

	idx, err := l.find(name)
	if err != nil {
		return err
	}

	if l.lines[idx].Quantity <= n {
		l.lines = append(l.lines[:idx], l.lines[idx+1:]...)
		return nil
	}
	l.lines[idx].Quantity -= n
	return nil
}

// SetQuantity sets the quantity of the named item. Zero or less removes it.
// More than MaxItemQuantity is rejected.
func (l *Ledger) SetQuantity(name string, n int) error {
	if l.frozen {
		return ErrLedgerFrozen
	}

	idx, err := l.find(name)
	if err != nil {
		return err
	}

	if n > MaxItemQuantity {
		return ErrInvalidQuantity
	}
	if n <= 0 {
		l.lines = append(l.lines[:idx], l.lines[idx+1:]...)
		return nil
	}
	l.lines[idx].Quantity = n
	return nil
}

// find returns the index of the single line with the given name
func (l *Ledger) find(name string) (int, error) {
	found := -1
	for i, line := range l.lines {
		if strings.EqualFold(line.Name, strings.TrimSpace(name)) {
			if found >= 0 {
				return -1, ErrAmbiguousItem
			}
			found = i
		}
	}
	if found < 0 {
		return -1, ErrItemNotFound
	}
	return found, nil
}

// Contains reports whether the ledger has at least one line of the named item
func (l *Ledger) Contains(name string) bool {
	for _, line := range l.lines {
		if strings.EqualFold(line.Name, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// Clear removes every line
func (l *Ledger) Clear() error {
	if l.frozen {
		return ErrLedgerFrozen
	}
	l.lines = make([]OrderLine, 0)
	return nil
}

// Freeze makes the ledger read-only
func (l *Ledger) Freeze() {
	l.frozen = true
}

// Frozen reports whether the ledger is read-only
func (l *Ledger) Frozen() bool {
	return l.frozen
}

// Lines returns a copy of the order lines
func (l *Ledger) Lines() []OrderLine {
	lines := make([]OrderLine, len(l.lines))
	for i, line := range l.lines {
		line.Customizations = append([]string(nil), line.Customizations...)
		lines[i] = line
	}
	return lines
}

// Names returns the distinct item names in order of first appearance
func (l *Ledger) Names() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, len(l.lines))
	for _, line := range l.lines {
		key := strings.ToLower(line.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, line.Name)
	}
	return names
}

// ItemCount returns the sum of quantities over all lines
func (l *Ledger) ItemCount() int {
	count := 0
	for _, line := range l.lines {
		count += line.Quantity
	}
	return count
}

// Empty reports whether the ledger has no lines
func (l *Ledger) Empty() bool {
	return len(l.lines) == 0
}
