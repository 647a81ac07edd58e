package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/domain"
	"github.com/jafarshop/orderhook/internal/notify"
	"github.com/jafarshop/orderhook/internal/payload"
	"github.com/jafarshop/orderhook/internal/repository"
	apperrors "github.com/jafarshop/orderhook/pkg/errors"
)

// placeholderClientName is used when a webhook carries a phone number
// but no usable name
const placeholderClientName = "Webhook Client"

// notifyTimeout bounds the detached notification send; it is
// deliberately independent of the request's own lifetime
const notifyTimeout = 15 * time.Second

type ingestService struct {
	repos      *repository.Repositories
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewIngestService creates the order ingestion service
func NewIngestService(repos *repository.Repositories, dispatcher *notify.Dispatcher, logger *zap.Logger) *ingestService {
	return &ingestService{
		repos:      repos,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// IngestOrder resolves the client and product for a validated set of
// canonical fields, commits the order, and triggers the order-created
// notification without waiting for it.
//
// Client resolution is a read-then-write sequence: two concurrent
// first-time submissions with the same phone can each create a client
// row. The store's unique index on phone is the only guard.
func (s *ingestService) IngestOrder(ctx context.Context, fields payload.OrderFields) (*IngestResult, error) {
	client, clientCreated, err := s.resolveClient(ctx, fields)
	if err != nil {
		return nil, err
	}

	// Best-effort product match: no hit means the order proceeds
	// without a product reference at the caller-declared price
	unitPrice := fields.UnitPrice
	var matched *domain.Product
	product, err := s.repos.Product.SearchByName(ctx, fields.ProductName)
	switch err.(type) {
	case nil:
		matched = product
		if unitPrice <= 0 {
			unitPrice = product.UnitPrice
		}
	case *apperrors.ErrNotFound:
		s.logger.Info("No product match for webhook order",
			zap.String("product_name", fields.ProductName),
		)
	default:
		return nil, err
	}

	totalAmount := fields.TotalAmount
	if totalAmount <= 0 {
		totalAmount = unitPrice * float64(fields.Quantity)
	}

	order := &domain.Order{
		OrderNumber:     ulid.Make().String(),
		ClientID:        client.ID,
		Quantity:        fields.Quantity,
		UnitPrice:       unitPrice,
		TotalAmount:     totalAmount,
		DeliveryAddress: fields.ClientAddress,
		DeliveryNotes:   fields.Notes,
		ExternalOrderID: fields.ExternalOrderID,
		Status:          domain.OrderStatusPending,
	}
	if matched != nil {
		order.ProductID = &matched.ID
	}

	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Webhook order committed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("client_id", client.ID.String()),
		zap.Bool("client_created", clientCreated),
		zap.Float64("total_amount", order.TotalAmount),
	)

	notified := s.dispatchNotification(client, order, fields.ProductName)

	return &IngestResult{
		Order:         order,
		Client:        client,
		ClientCreated: clientCreated,
		Notified:      notified,
	}, nil
}

// resolveClient looks up an existing client by exact phone match and
// creates one if absent
func (s *ingestService) resolveClient(ctx context.Context, fields payload.OrderFields) (*domain.Client, bool, error) {
	client, err := s.repos.Client.GetByPhone(ctx, fields.ClientPhone)
	if err == nil {
		return client, false, nil
	}
	if _, ok := err.(*apperrors.ErrNotFound); !ok {
		return nil, false, err
	}

	name := fields.ClientName
	if name == "" {
		name = placeholderClientName
	}

	client = &domain.Client{
		Name:    name,
		Phone:   fields.ClientPhone,
		City:    fields.ClientCity,
		Address: fields.ClientAddress,
		Notes:   fields.Notes,
	}
	if err := s.repos.Client.Create(ctx, client); err != nil {
		return nil, false, err
	}

	return client, true, nil
}

// dispatchNotification launches the order-created send on a detached
// goroutine. The handler must never wait on this: notification latency
// and failures are invisible to the webhook caller.
func (s *ingestService) dispatchNotification(client *domain.Client, order *domain.Order, productName string) bool {
	if s.dispatcher == nil || !s.dispatcher.Enabled() {
		return false
	}

	n := notify.Notification{
		Phone:       client.Phone,
		OrderNumber: order.OrderNumber,
		ClientName:  client.Name,
		ProductName: productName,
		Amount:      order.TotalAmount,
		Address:     order.DeliveryAddress,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.dispatcher.OrderCreated(ctx, n); err != nil {
			s.logger.Warn("Order notification failed",
				zap.String("order_number", n.OrderNumber),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("Order notification sent",
			zap.String("order_number", n.OrderNumber),
		)
	}()

	return true
}
