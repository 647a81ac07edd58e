package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/orderhook/internal/config"
)

// Notification carries the order-created message for the downstream
// SMS/message sender
type Notification struct {
	Phone       string  `json:"phone"`
	OrderNumber string  `json:"order_number"`
	ClientName  string  `json:"client_name"`
	ProductName string  `json:"product_name"`
	Amount      float64 `json:"amount"`
	Address     string  `json:"address"`
}

// Dispatcher sends order-created notifications to the downstream
// dispatcher service. Callers treat it as fire-and-forget: a failed
// send is logged and never propagated into the order pipeline.
type Dispatcher struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDispatcher creates a notification dispatcher client
func NewDispatcher(cfg config.NotifyConfig, logger *zap.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Dispatcher{
		url:   cfg.URL,
		token: cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Enabled reports whether a dispatcher endpoint is configured
func (d *Dispatcher) Enabled() bool {
	return d.url != ""
}

// OrderCreated posts the notification to the dispatcher endpoint
func (d *Dispatcher) OrderCreated(ctx context.Context, n Notification) error {
	if !d.Enabled() {
		return nil
	}

	jsonData, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("notification dispatcher error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}
