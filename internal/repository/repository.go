package repository

import (
	"context"

	"github.com/jafarshop/orderhook/internal/domain"
)

// ClientRepository accesses client records. GetByPhone returns
// *errors.ErrNotFound when no client matches.
type ClientRepository interface {
	GetByPhone(ctx context.Context, phone string) (*domain.Client, error)
	Create(ctx context.Context, client *domain.Client) error
}

// ProductRepository accesses the product catalog. SearchByName does a
// case-insensitive partial match and returns the first active hit, or
// *errors.ErrNotFound.
type ProductRepository interface {
	SearchByName(ctx context.Context, name string) (*domain.Product, error)
}

// OrderRepository persists orders
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// Repositories bundles all repository implementations
type Repositories struct {
	Client  ClientRepository
	Product ProductRepository
	Order   OrderRepository
}
