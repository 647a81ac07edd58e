package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/orderhook/internal/api"
	"github.com/jafarshop/orderhook/internal/config"
	"github.com/jafarshop/orderhook/internal/domain"
	"github.com/jafarshop/orderhook/internal/notify"
	"github.com/jafarshop/orderhook/internal/ratelimit"
	"github.com/jafarshop/orderhook/internal/repository"
	"github.com/jafarshop/orderhook/internal/service"
	"github.com/jafarshop/orderhook/internal/signature"
	apperrors "github.com/jafarshop/orderhook/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore is an in-memory stand-in for the Postgres repositories
type memStore struct {
	mu       sync.Mutex
	clients  []*domain.Client
	products []domain.Product
	orders   []*domain.Order
	failNext error
}

type memClientRepo struct{ s *memStore }

func (r *memClientRepo) GetByPhone(_ context.Context, phone string) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.clients {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "client", ID: phone}
}

func (r *memClientRepo) Create(_ context.Context, client *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failNext != nil {
		err := r.s.failNext
		r.s.failNext = nil
		return err
	}
	client.ID = uuid.New()
	r.s.clients = append(r.s.clients, client)
	return nil
}

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) SearchByName(_ context.Context, name string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.products {
		p := &r.s.products[i]
		if p.IsActive && strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			return p, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "product", ID: name}
}

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failNext != nil {
		err := r.s.failNext
		r.s.failNext = nil
		return err
	}
	order.ID = uuid.New()
	r.s.orders = append(r.s.orders, order)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.ID.String() == id {
			return o, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "order", ID: id}
}

type testEnv struct {
	router *gin.Engine
	store  *memStore
	cfg    *config.Config
}

func newTestEnv(t *testing.T, secret string, webhookMax int) *testEnv {
	t.Helper()

	store := &memStore{
		products: []domain.Product{
			{ID: uuid.New(), Name: "Argan Oil 100ml", UnitPrice: 12.5, IsActive: true},
			{ID: uuid.New(), Name: "Rose Water", UnitPrice: 5, IsActive: true},
		},
	}
	repos := &repository.Repositories{
		Client:  &memClientRepo{s: store},
		Product: &memProductRepo{s: store},
		Order:   &memOrderRepo{s: store},
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Environment: "test",
		Webhook: config.WebhookConfig{
			Secret:       secret,
			TimestampMax: 5 * time.Minute,
		},
		Admin: config.AdminConfig{APIKeyHash: string(adminHash)},
	}

	logger := zap.NewNop()
	dispatcher := notify.NewDispatcher(config.NotifyConfig{}, logger)
	ingestor := service.NewIngestService(repos, dispatcher, logger)

	limiters := &ratelimit.Set{
		Webhook: ratelimit.New(time.Minute, webhookMax),
		API:     ratelimit.New(time.Minute, 100),
		Auth:    ratelimit.New(time.Minute, 100),
	}
	t.Cleanup(limiters.Stop)

	return &testEnv{
		router: api.NewRouter(cfg, repos, limiters, ingestor, logger),
		store:  store,
		cfg:    cfg,
	}
}

func (e *testEnv) post(body []byte, contentType string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = "203.0.113.10:4567"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestOrderWebhook_SuccessJSON(t *testing.T) {
	env := newTestEnv(t, "", 100)

	body := []byte(`{
		"phone": "+962791234567",
		"name": "Rana Haddad",
		"city": "Amman",
		"address": "Rainbow St 5",
		"product_name": "Argan Oil",
		"quantity": 2,
		"unit_price": 12.5,
		"order_id": "ext-778"
	}`)

	w := env.post(body, "application/json", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["order_id"])
	assert.NotEmpty(t, resp["order_number"])
	assert.NotEmpty(t, resp["client_id"])
	assert.Equal(t, "ext-778", resp["external_order_id"])

	require.Len(t, env.store.orders, 1)
	order := env.store.orders[0]
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 2, order.Quantity)
	assert.Equal(t, 25.0, order.TotalAmount)
	require.NotNil(t, order.ProductID)

	require.Len(t, env.store.clients, 1)
	assert.Equal(t, "Rana Haddad", env.store.clients[0].Name)
	assert.Equal(t, "+962791234567", env.store.clients[0].Phone)
}

func TestOrderWebhook_SamePhoneReusesClient(t *testing.T) {
	env := newTestEnv(t, "", 100)

	first := env.post([]byte(`{"phone":"+962791234567","name":"Rana","product_name":"Soap"}`),
		"application/json", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := env.post([]byte(`{"phone":"+962791234567","name":"Different Name","product_name":"Soap"}`),
		"application/json", nil)
	require.Equal(t, http.StatusOK, second.Code)

	require.Len(t, env.store.clients, 1)
	assert.Equal(t, "Rana", env.store.clients[0].Name)
	assert.Equal(t, decodeBody(t, first)["client_id"], decodeBody(t, second)["client_id"])
	assert.Len(t, env.store.orders, 2)
}

func TestOrderWebhook_PlaceholderClientName(t *testing.T) {
	env := newTestEnv(t, "", 100)

	w := env.post([]byte(`{"phone":"+962791234567","product_name":"Soap"}`),
		"application/json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.store.clients, 1)
	assert.Equal(t, "Webhook Client", env.store.clients[0].Name)
}

func TestOrderWebhook_InvalidPhoneRejected(t *testing.T) {
	env := newTestEnv(t, "", 100)

	w := env.post([]byte(`{"phone":"abc","product_name":"Soap"}`), "application/json", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "phone")

	assert.Empty(t, env.store.clients)
	assert.Empty(t, env.store.orders)
}

func TestOrderWebhook_QuantityBounds(t *testing.T) {
	tests := []struct {
		quantity   int
		wantStatus int
	}{
		{0, http.StatusBadRequest},
		{1, http.StatusOK},
		{10000, http.StatusOK},
		{10001, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("quantity %d", tt.quantity), func(t *testing.T) {
			env := newTestEnv(t, "", 100)
			body := fmt.Sprintf(`{"phone":"+962791234567","product_name":"Soap","quantity":%d}`, tt.quantity)
			w := env.post([]byte(body), "application/json", nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestOrderWebhook_TotalFallback(t *testing.T) {
	env := newTestEnv(t, "", 100)

	w := env.post([]byte(`{"phone":"+962791234567","product_name":"Soap","unit_price":1500,"quantity":3}`),
		"application/json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.store.orders, 1)
	assert.Equal(t, 4500.0, env.store.orders[0].TotalAmount)
}

func TestOrderWebhook_UnmatchedProductStillSucceeds(t *testing.T) {
	env := newTestEnv(t, "", 100)

	w := env.post([]byte(`{"phone":"+962791234567","product_name":"No Such Product","unit_price":9.99}`),
		"application/json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.store.orders, 1)
	order := env.store.orders[0]
	assert.Nil(t, order.ProductID)
	assert.Equal(t, 9.99, order.UnitPrice)
}

func TestOrderWebhook_BracketNotationForm(t *testing.T) {
	env := newTestEnv(t, "", 100)

	body := "form%5Bfields%5D%5Bphone%5D=%2B962791234567&form%5Bfields%5D%5Bname%5D=Rana&form%5Bfields%5D%5Bproduct%5D=Rose+Water"
	w := env.post([]byte(body), "application/x-www-form-urlencoded", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, env.store.clients, 1)
	assert.Equal(t, "Rana", env.store.clients[0].Name)
	require.Len(t, env.store.orders, 1)
	assert.NotNil(t, env.store.orders[0].ProductID)
}

func TestOrderWebhook_SignatureRequired(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"phone":"+962791234567","product_name":"Soap"}`)

	t.Run("valid signature accepted", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", map[string]string{
			"X-Webhook-Signature": signature.Sign(body, secret),
		})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("prefixed signature accepted", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", map[string]string{
			"X-Hub-Signature-256": "sha256=" + signature.Sign(body, secret),
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", map[string]string{
			"X-Webhook-Signature": signature.Sign(body, "wrong-secret"),
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid webhook signature", decodeBody(t, w)["error"])
		assert.Empty(t, env.store.orders)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("shared secret header accepted without signature", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", map[string]string{
			"X-Webhook-Secret": secret,
		})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("wrong shared secret rejected even with valid signature", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", map[string]string{
			"X-Webhook-Secret":    "wrong-secret",
			"X-Webhook-Signature": signature.Sign(body, secret),
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid webhook signature", decodeBody(t, w)["error"])
		assert.Empty(t, env.store.orders)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)
		w := env.post(body, "application/json", map[string]string{
			"X-Webhook-Signature": signature.Sign(body, secret),
			"X-Webhook-Timestamp": "1136214245",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("multipart skips verification", func(t *testing.T) {
		env := newTestEnv(t, secret, 100)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("phone", "+962791234567"))
		require.NoError(t, mw.WriteField("product_name", "Soap"))
		require.NoError(t, mw.Close())

		w := env.post(buf.Bytes(), mw.FormDataContentType(), nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestOrderWebhook_RateLimited(t *testing.T) {
	env := newTestEnv(t, "", 2)
	body := []byte(`{"phone":"+962791234567","product_name":"Soap"}`)

	require.Equal(t, http.StatusOK, env.post(body, "application/json", nil).Code)
	require.Equal(t, http.StatusOK, env.post(body, "application/json", nil).Code)

	w := env.post(body, "application/json", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "rate limit exceeded")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	assert.Len(t, env.store.orders, 2)
}

func TestOrderWebhook_RateLimitKeyedByClientIP(t *testing.T) {
	env := newTestEnv(t, "", 1)
	body := []byte(`{"phone":"+962791234567","product_name":"Soap"}`)

	first := env.post(body, "application/json", map[string]string{"CF-Connecting-IP": "198.51.100.1"})
	require.Equal(t, http.StatusOK, first.Code)

	blocked := env.post(body, "application/json", map[string]string{"CF-Connecting-IP": "198.51.100.1"})
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)

	other := env.post(body, "application/json", map[string]string{"CF-Connecting-IP": "198.51.100.2"})
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestOrderWebhook_MalformedPayload(t *testing.T) {
	env := newTestEnv(t, "", 100)

	w := env.post([]byte(`{"phone":`), "application/json", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestOrderWebhook_UnknownContentTypeFallsBackToJSON(t *testing.T) {
	env := newTestEnv(t, "", 100)

	w := env.post([]byte(`{"phone":"+962791234567","product_name":"Soap"}`), "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOrderWebhook_PersistenceErrorIsGeneric(t *testing.T) {
	env := newTestEnv(t, "", 100)
	env.store.failNext = errors.New(`pq: relation "clients" does not exist`)

	w := env.post([]byte(`{"phone":"+962791234567","product_name":"Soap"}`), "application/json", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "failed to process order", resp["error"])
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestOrderWebhook_CORSPreflight(t *testing.T) {
	env := newTestEnv(t, "", 100)

	req := httptest.NewRequest(http.MethodOptions, "/v1/webhooks/orders", nil)
	req.Header.Set("Origin", "https://forms.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
