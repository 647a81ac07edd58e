package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/domain"
	"github.com/jafarshop/orderhook/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) SearchByName(ctx context.Context, name string) (*domain.Product, error) {
	query := `
		SELECT id, name, unit_price, is_active, created_at
		FROM products
		WHERE is_active = true AND name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT 1
	`

	var product domain.Product

	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&product.ID,
		&product.Name,
		&product.UnitPrice,
		&product.IsActive,
		&product.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: name}
	}
	if err != nil {
		r.logger.Error("Failed to search product by name", zap.Error(err))
		return nil, err
	}

	return &product, nil
}
