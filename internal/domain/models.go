package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client represents a customer record; phone number is the natural
// dedup key for webhook-originated clients
type Client struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	City      string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product represents a sellable product; the webhook pipeline only
// ever reads products, never creates them
type Product struct {
	ID        uuid.UUID
	Name      string
	UnitPrice float64
	IsActive  bool
	CreatedAt time.Time
}

// Order represents an order committed by the ingestion pipeline
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	ClientID        uuid.UUID
	ProductID       *uuid.UUID
	Quantity        int
	UnitPrice       float64
	TotalAmount     float64
	DeliveryAddress string
	DeliveryNotes   string
	ExternalOrderID string
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
