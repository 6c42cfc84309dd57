package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/metrics"
	orderapp "marketplace/internal/service/order/application"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/infrastructure"
	"marketplace/internal/service/order/infrastructure/adapter"
	"marketplace/internal/service/payment/application"
	"marketplace/internal/service/payment/gateway"
)

const salt = "handler-salt"

type fixture struct {
	mux   *http.ServeMux
	repo  *infrastructure.MemoryOrderRepository
	order *domain.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := infrastructure.NewMemoryOrderRepository()

	cfg := config.Default().Gateway
	cfg.IntegritySalt = salt
	merchant, err := gateway.NewMerchant(cfg)
	require.NoError(t, err)

	m := metrics.NewServerMetrics("test", prometheus.NewRegistry())
	events := orderapp.NewEventEmitter(adapter.NewEventLogAdapter(), m)
	svc := application.NewPaymentService(repo, merchant, events, noop.NewTracerProvider().Tracer("test"), m, "http://shop.local")
	verifier := auth.NewStaticVerifier([]config.StaticToken{
		{Token: "cust-token", AccountID: "cust-1", Roles: []string{"customer"}},
		{Token: "seller-token", AccountID: "seller-1", Roles: []string{"seller"}},
	})

	mux := http.NewServeMux()
	NewPaymentHandler(svc, verifier, m).RegisterRoutes(mux)

	o, err := domain.NewOrder(domain.Draft{
		CustomerID:    "cust-1",
		FirstName:     "A",
		LastName:      "B",
		Phone:         "1",
		Email:         "a@b.c",
		HouseAddress:  "x",
		Items:         []domain.OrderItem{{ProductID: "p", Price: decimal.NewFromInt(10), Quantity: 1, StoreID: "s"}},
		ItemsTotal:    decimal.NewFromInt(10),
		ShippingFee:   decimal.Zero,
		PaymentMethod: "Gateway",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), o))

	return &fixture{mux: mux, repo: repo, order: o}
}

func signedForm(trackingID, code string) url.Values {
	f := gateway.Fields{
		gateway.FieldBillReference: trackingID,
		gateway.FieldResponseCode:  code,
		gateway.FieldAmount:        "1000",
	}
	f[gateway.FieldSecureHash] = gateway.SecureHash(salt, f)
	form := url.Values{}
	for k, v := range f {
		form.Set(k, v)
	}
	return form
}

func postForm(mux http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPreflight(t *testing.T) {
	fx := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/payments/callback", nil)
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCallbackRedirectsToCheckout(t *testing.T) {
	fx := newFixture(t)
	rec := postForm(fx.mux, signedForm(fx.order.TrackingID, "000"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := rec.Body.String()
	assert.Contains(t, body, `action="http://shop.local/checkout"`)
	assert.Contains(t, body, `name="status" value="success"`)
	assert.Contains(t, body, `name="trackingId" value="`+fx.order.TrackingID+`"`)

	o, err := fx.repo.FindByID(context.Background(), fx.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)
}

func TestCallbackIntegrityFailureIsPlainText(t *testing.T) {
	fx := newFixture(t)
	form := signedForm(fx.order.TrackingID, "000")
	form.Set(gateway.FieldAmount, "1")
	rec := postForm(fx.mux, form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "integrity check failed", strings.TrimSpace(rec.Body.String()))

	o, err := fx.repo.FindByID(context.Background(), fx.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
}

func TestPrepareRequiresCustomer(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/payments/prepare?orderId="+fx.order.ID, nil)
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/payments/prepare?orderId="+fx.order.ID, nil)
	req.Header.Set("Authorization", "Bearer seller-token")
	rec = httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/payments/prepare?orderId="+fx.order.ID, nil)
	req.Header.Set("Authorization", "Bearer cust-token")
	rec = httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp application.PrepareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, fx.order.TrackingID, resp.PaymentFields[gateway.FieldBillReference])
	assert.True(t, gateway.Verify(salt, resp.PaymentFields))
}
