package models

import (
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

// Order is a confirmed order as stored in the database
type Order struct {
	gorm.Model
	OrderID        string          `gorm:"unique_index;not null" json:"order_id"`
	SessionID      string          `gorm:"index" json:"session_id"`
	Items          []OrderItem     `gorm:"foreignkey:OrderRefer" json:"items"`
	Status         string          `json:"status"`
	DeliveryMethod string          `json:"delivery_method"`
	CustomerName   string          `json:"customer_name,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	Instructions   string          `gorm:"type:text" json:"instructions,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2)" json:"subtotal"`
	Tax            decimal.Decimal `gorm:"type:decimal(10,2)" json:"tax"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2)" json:"total"`
	TimeReceived   time.Time       `json:"time_received"`
}

// OrderItem is one stored order line
type OrderItem struct {
	gorm.Model
	OrderRefer     uint            `gorm:"index" json:"-"`
	Position       int             `json:"position"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2)" json:"unit_price"`
	Customizations string          `json:"customizations,omitempty"`
}

const customizationSeparator = "; "

// NewOrderRecord builds the stored form of a conversation's order
func NewOrderRecord(orderID, sessionID string, state *SharedState) *Order {
	totals := state.Totals()
	lines := state.Ledger().Lines()

	items := make([]OrderItem, len(lines))
	for i, line := range lines {
		items[i] = OrderItem{
			Position:       i,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Customizations: strings.Join(line.Customizations, customizationSeparator),
		}
	}

	name := state.DeliveryDetails.Name
	if name == "" {
		name = state.CustomerName
	}

	return &Order{
		OrderID:        orderID,
		SessionID:      sessionID,
		Items:          items,
		Status:         string(state.OrderStatus),
		DeliveryMethod: string(state.DeliveryMethod),
		CustomerName:   name,
		Phone:          state.DeliveryDetails.Phone,
		Address:        state.DeliveryDetails.Address,
		Instructions:   state.DeliveryDetails.Instructions,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Total:          totals.Total,
		TimeReceived:   time.Now(),
	}
}

// Lines converts stored items back into order lines
func (o *Order) Lines() []OrderLine {
	lines := make([]OrderLine, len(o.Items))
	for i, item := range o.Items {
		var customizations []string
		if item.Customizations != "" {
			customizations = strings.Split(item.Customizations, customizationSeparator)
		}
		lines[i] = OrderLine{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Customizations: customizations,
		}
	}
	return lines
}
