package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/api/middleware"
	"github.com/jafarshop/orderhook/internal/config"
	"github.com/jafarshop/orderhook/internal/payload"
	"github.com/jafarshop/orderhook/internal/service"
	"github.com/jafarshop/orderhook/internal/signature"
)

// maxBodyBytes caps an inbound webhook body; form-builder submissions
// are small and anything larger is abuse
const maxBodyBytes = 1 << 20

const timestampHeader = "X-Webhook-Timestamp"

// OrderIngestor commits a validated order against the store
type OrderIngestor interface {
	IngestOrder(ctx context.Context, fields payload.OrderFields) (*service.IngestResult, error)
}

// OrderWebhookResponse is the success body returned to the caller
type OrderWebhookResponse struct {
	Success            bool   `json:"success"`
	OrderID            string `json:"order_id"`
	OrderNumber        string `json:"order_number"`
	ClientID           string `json:"client_id"`
	ExternalOrderID    string `json:"external_order_id,omitempty"`
	NotificationQueued bool   `json:"notification_queued"`
}

// HandleOrderWebhook handles POST /v1/webhooks/orders. Rate limiting
// runs in middleware before this handler; everything after it executes
// strictly in order: raw body capture, signature verification,
// normalization, field validation, idempotent commit, fire-and-forget
// notification.
func HandleOrderWebhook(cfg *config.Config, ingestor OrderIngestor, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The exact bytes are needed before any parsing touches them:
		// HMAC is computed over the body as sent, not a re-serialization
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "unable to read request body",
			})
			return
		}

		contentType := c.GetHeader("Content-Type")
		if !verifySignature(c, cfg, body, contentType, logger) {
			return
		}

		tree, err := payload.Normalize(body, contentType)
		if err != nil {
			logger.Info("Rejected unparseable webhook payload",
				zap.String("content_type", contentType),
				zap.Error(err),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "unrecognized payload format",
			})
			return
		}

		fields := payload.Resolve(tree)
		if err := fields.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		result, err := ingestor.IngestOrder(c.Request.Context(), fields)
		if err != nil {
			// Store errors stay in the logs; the caller gets a generic
			// message, never the underlying SQL error text
			logger.Error("Failed to commit webhook order",
				zap.String("phone", fields.ClientPhone),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "failed to process order",
			})
			return
		}

		c.JSON(http.StatusOK, OrderWebhookResponse{
			Success:            true,
			OrderID:            result.Order.ID.String(),
			OrderNumber:        result.Order.OrderNumber,
			ClientID:           result.Client.ID.String(),
			ExternalOrderID:    result.Order.ExternalOrderID,
			NotificationQueued: result.Notified,
		})
	}
}

// verifySignature enforces HMAC verification when a shared secret is
// configured. Integrations that cannot compute an HMAC may send the
// shared secret itself in its header variant instead; if that header is
// present it decides the request on its own. Multipart bodies are
// exempt: form builders that upload multipart cannot produce a
// byte-exact signable payload, so those proceed unsigned with a warning
// rather than failing closed. Returns false after writing the rejection
// response.
func verifySignature(c *gin.Context, cfg *config.Config, body []byte, contentType string, logger *zap.Logger) bool {
	if cfg.Webhook.Secret == "" {
		return true
	}

	if provided := signature.SecretFromHeader(c.Request.Header); provided != "" {
		if signature.VerifySecret(provided, cfg.Webhook.Secret) {
			return true
		}
		logger.Warn("Rejected webhook with invalid shared secret",
			zap.String("remote", middleware.ClientIdentifier(c.Request)),
		)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid webhook signature",
		})
		return false
	}

	if strings.Contains(strings.ToLower(contentType), "multipart/form-data") {
		logger.Warn("Skipping signature verification for multipart webhook",
			zap.String("remote", middleware.ClientIdentifier(c.Request)),
		)
		return true
	}

	sig := signature.FromHeader(c.Request.Header)
	if sig == "" || !signature.Verify(body, sig, cfg.Webhook.Secret) {
		logger.Warn("Rejected webhook with invalid signature",
			zap.String("remote", middleware.ClientIdentifier(c.Request)),
			zap.Bool("signature_present", sig != ""),
		)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid webhook signature",
		})
		return false
	}

	if ts := c.GetHeader(timestampHeader); ts != "" {
		if !signature.VerifyTimestamp(ts, cfg.Webhook.TimestampMax) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid webhook signature",
			})
			return false
		}
	}

	return true
}
