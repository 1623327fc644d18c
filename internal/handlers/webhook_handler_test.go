package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
	"marketplace/internal/services"
)

type stubStatusService struct {
	allowedFn  func(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatus, error)
	updateFn   func(ctx context.Context, actorID, orderID uuid.UUID, next models.OrderStatus, note string) (*services.OrderView, error)
	markPaidFn func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

func (s *stubStatusService) AllowedTransitions(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatus, error) {
	return s.allowedFn(ctx, actorID, orderID)
}

func (s *stubStatusService) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, next models.OrderStatus, note string) (*services.OrderView, error) {
	return s.updateFn(ctx, actorID, orderID, next, note)
}

func (s *stubStatusService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.markPaidFn(ctx, orderID)
}

func webhookRouter(status services.StatusService, secret string) *gin.Engine {
	r := gin.New()
	h := NewPaymentWebhookHandler(status, secret)
	r.POST("/api/payments/webhook", h.HandlePaymentEvent)
	return r
}

func postWebhook(r http.Handler, secret, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	called := false
	status := &stubStatusService{
		markPaidFn: func(context.Context, uuid.UUID) (*models.Order, error) {
			called = true
			return nil, nil
		},
	}
	r := webhookRouter(status, "hook-secret")

	w := postWebhook(r, "wrong", `{"order_id":"`+uuid.New().String()+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, called)
}

func TestWebhookRejectsWhenUnconfigured(t *testing.T) {
	t.Parallel()

	r := webhookRouter(&stubStatusService{}, "")
	w := postWebhook(r, "", `{"order_id":"`+uuid.New().String()+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookIgnoresNonPaymentEvents(t *testing.T) {
	t.Parallel()

	called := false
	status := &stubStatusService{
		markPaidFn: func(context.Context, uuid.UUID) (*models.Order, error) {
			called = true
			return nil, nil
		},
	}
	r := webhookRouter(status, "hook-secret")

	body := `{"order_id":"` + uuid.New().String() + `","event":"payment.failed"}`
	w := postWebhook(r, "hook-secret", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, called)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ignored", resp["status"])
}

func TestWebhookConfirmsPayment(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	status := &stubStatusService{
		markPaidFn: func(_ context.Context, id uuid.UUID) (*models.Order, error) {
			require.Equal(t, orderID, id)
			return &models.Order{
				ID:          id,
				OrderNumber: "ACM-260101-000001",
				Status:      models.StatusPaymentReceived,
			}, nil
		},
	}
	r := webhookRouter(status, "hook-secret")

	body := `{"order_id":"` + orderID.String() + `","event":"payment.success","reference":"chapa-tx-81"}`
	w := postWebhook(r, "hook-secret", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status      string `json:"status"`
		OrderNumber string `json:"order_number"`
		OrderStatus string `json:"order_status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "ACM-260101-000001", resp.OrderNumber)
	require.Equal(t, string(models.StatusPaymentReceived), resp.OrderStatus)
}

func TestWebhookRejectsBadOrderID(t *testing.T) {
	t.Parallel()

	r := webhookRouter(&stubStatusService{}, "hook-secret")
	w := postWebhook(r, "hook-secret", `{"order_id":"not-a-uuid"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookPropagatesConflict(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	status := &stubStatusService{
		markPaidFn: func(context.Context, uuid.UUID) (*models.Order, error) {
			return nil, &services.ConcurrencyConflictError{OrderID: orderID}
		},
	}
	r := webhookRouter(status, "hook-secret")

	w := postWebhook(r, "hook-secret", `{"order_id":"`+orderID.String()+`","event":"payment.success"}`)
	require.Equal(t, http.StatusConflict, w.Code)
}
