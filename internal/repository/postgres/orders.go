package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/domain"
	"github.com/jafarshop/orderhook/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, client_id, product_id, quantity, unit_price,
			total_amount, delivery_address, delivery_notes, external_order_id,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.ClientID,
		order.ProductID,
		order.Quantity,
		order.UnitPrice,
		order.TotalAmount,
		order.DeliveryAddress,
		order.DeliveryNotes,
		order.ExternalOrderID,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id}
	}

	query := `
		SELECT id, order_number, client_id, product_id, quantity, unit_price,
			total_amount, delivery_address, delivery_notes, external_order_id,
			status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	var productID uuid.NullUUID
	var address, notes, externalID sql.NullString

	err = r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.ClientID,
		&productID,
		&order.Quantity,
		&order.UnitPrice,
		&order.TotalAmount,
		&address,
		&notes,
		&externalID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	if productID.Valid {
		order.ProductID = &productID.UUID
	}
	order.DeliveryAddress = address.String
	order.DeliveryNotes = notes.String
	order.ExternalOrderID = externalID.String

	return &order, nil
}
