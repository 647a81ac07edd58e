package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/domain"
	"github.com/jafarshop/orderhook/internal/repository"
	"github.com/jafarshop/orderhook/pkg/errors"
)

// OrderResponse represents the order lookup response
type OrderResponse struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	ClientID        string             `json:"client_id"`
	ProductID       *string            `json:"product_id,omitempty"`
	Quantity        int                `json:"quantity"`
	UnitPrice       float64            `json:"unit_price"`
	TotalAmount     float64            `json:"total_amount"`
	DeliveryAddress string             `json:"delivery_address,omitempty"`
	DeliveryNotes   string             `json:"delivery_notes,omitempty"`
	ExternalOrderID string             `json:"external_order_id,omitempty"`
	Status          domain.OrderStatus `json:"status"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

// HandleGetOrder handles GET /v1/admin/orders/:id
func HandleGetOrder(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := repos.Order.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			logger.Error("Failed to get order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		response := OrderResponse{
			ID:              order.ID.String(),
			OrderNumber:     order.OrderNumber,
			ClientID:        order.ClientID.String(),
			Quantity:        order.Quantity,
			UnitPrice:       order.UnitPrice,
			TotalAmount:     order.TotalAmount,
			DeliveryAddress: order.DeliveryAddress,
			DeliveryNotes:   order.DeliveryNotes,
			ExternalOrderID: order.ExternalOrderID,
			Status:          order.Status,
			CreatedAt:       order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:       order.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}

		if order.ProductID != nil {
			productID := order.ProductID.String()
			response.ProductID = &productID
		}

		c.JSON(http.StatusOK, response)
	}
}
