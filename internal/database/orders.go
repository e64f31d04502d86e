package database

import (
	"context"
	"errors"
	"fmt"

	"bistro/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store errors
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
)

// Store persists confirmed orders with gorm
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore wraps an open connection and migrates the schema
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "order_store"))}, nil
}

// Stats aggregates the stored orders
type Stats struct {
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	Pickup   int             `json:"pickup"`
	Delivery int             `json:"delivery"`
}

func itemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

// SaveOrder stores an order with its items in one transaction
func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order == nil || order.OrderID == "" {
		return fmt.Errorf("%w: missing order id", ErrInvalidOrder)
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("%w: order %s has no items", ErrInvalidOrder, order.OrderID)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save order %s: %w", order.OrderID, err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit order %s: %w", order.OrderID, err)
	}

	s.logger.Info("order saved",
		zap.String("order_id", order.OrderID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return nil
}

// GetOrder loads an order and its items by order id
func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.Preload("Items", itemsByPosition).Where("order_id = ?", orderID).First(&order).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return &order, nil
}

// ListOrders returns the most recent orders first. A limit of zero returns all.
func (s *Store) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := s.db.Preload("Items", itemsByPosition).Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// OrdersForSession returns the orders placed in one conversation
func (s *Store) OrdersForSession(ctx context.Context, sessionID string) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.db.Preload("Items", itemsByPosition).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for session %s: %w", sessionID, err)
	}
	return orders, nil
}

// Stats sums the stored orders
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	var orders []models.Order
	if err := s.db.Select("total, delivery_method").Find(&orders).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to load order stats: %w", err)
	}

	stats := Stats{Revenue: decimal.Zero}
	for _, o := range orders {
		stats.Orders++
		stats.Revenue = stats.Revenue.Add(o.Total)
		switch models.DeliveryMethod(o.DeliveryMethod) {
		case models.DeliveryMethodPickup:
			stats.Pickup++
		case models.DeliveryMethodDelivery:
			stats.Delivery++
		}
	}
	return stats, nil
}
