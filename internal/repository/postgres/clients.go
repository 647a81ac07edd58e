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

type clientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *sql.DB, logger *zap.Logger) *clientRepository {
	return &clientRepository{
		db:     db,
		logger: logger,
	}
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	query := `
		SELECT id, name, phone, city, address, notes, created_at, updated_at
		FROM clients
		WHERE phone = $1
		LIMIT 1
	`

	var client domain.Client
	var city, address, notes sql.NullString

	err := r.db.QueryRowContext(ctx, query, phone).Scan(
		&client.ID,
		&client.Name,
		&client.Phone,
		&city,
		&address,
		&notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "client", ID: phone}
	}
	if err != nil {
		r.logger.Error("Failed to get client by phone", zap.Error(err))
		return nil, err
	}

	client.City = city.String
	client.Address = address.String
	client.Notes = notes.String

	return &client, nil
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (id, name, phone, city, address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.Phone,
		client.City,
		client.Address,
		client.Notes,
		client.CreatedAt,
		client.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create client", zap.Error(err))
		return err
	}

	return nil
}
