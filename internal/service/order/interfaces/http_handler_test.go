package interfaces

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/httpx"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/order/application"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/infrastructure"
	"marketplace/internal/service/order/infrastructure/adapter"
	"marketplace/internal/service/order/infrastructure/rule"
)

const cartJSON = `{
  "firstName": "Sara",
  "lastName": "Ali",
  "phone": "03001112222",
  "email": "sara@example.com",
  "houseAddress": "5 Canal View",
  "items": [
    {"productId": "p1", "name": "Lamp", "price": 1200, "quantity": 1, "storeId": "store-a"},
    {"productId": "p2", "name": "Rug", "price": "800.50", "quantity": 2, "storeId": "store-b"}
  ],
  "itemsTotal": 2801,
  "shippingFee": 150,
  "paymentMethod": "Gateway"
}`

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	repo := infrastructure.NewMemoryOrderRepository()
	catalog := adapter.NewCatalogMemoryAdapter()
	catalog.AddStore("seller-a", "store-a")
	catalog.AddStore("seller-b", "store-b")

	m := metrics.NewServerMetrics("test", prometheus.NewRegistry())
	tracer := noop.NewTracerProvider().Tracer("test")
	events := application.NewEventEmitter(adapter.NewEventLogAdapter(), m)
	priceRule, err := rule.NewCELPriceRule("submitted == computed")
	require.NoError(t, err)
	pricing := application.NewPricePolicy(config.PricingConfig{Mode: application.PricingTrust}, catalog, priceRule)

	verifier := auth.NewStaticVerifier([]config.StaticToken{
		{Token: "sara", AccountID: "cust-sara", Roles: []string{"customer"}},
		{Token: "omar", AccountID: "cust-omar", Roles: []string{"customer"}},
		{Token: "seller-a", AccountID: "seller-a", Roles: []string{"seller"}},
		{Token: "seller-b", AccountID: "seller-b", Roles: []string{"seller"}},
	})

	mux := http.NewServeMux()
	NewOrderHandler(application.NewOrderApplicationService(repo, pricing, events, tracer, m, "http://shop.local"), verifier, m).RegisterRoutes(mux)
	NewSellerHandler(application.NewSettlementService(repo, catalog, events, tracer, m), verifier, m).RegisterRoutes(mux)
	return mux
}

func call(mux http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateAndReadOrder(t *testing.T) {
	mux := newTestMux(t)

	rec := call(mux, http.MethodPost, "/orders", "sara", cartJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[application.CreateOrderResponse](t, rec)
	assert.Regexp(t, domain.TrackingIDPattern, created.TrackingID)
	assert.Equal(t, "http://shop.local/payment?orderId="+created.OrderID, created.PaymentURL)

	rec = call(mux, http.MethodGet, "/orders/"+created.OrderID, "sara", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[application.OrderView](t, rec)
	assert.Equal(t, domain.PaymentPending, view.PaymentStatus)
	assert.Equal(t, "2951", view.GrandTotal.String())
	assert.Len(t, view.Items, 2)

	rec = call(mux, http.MethodGet, "/orders/"+created.OrderID, "omar", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.KindForbidden, decode[httpx.ErrorBody](t, rec).Kind)

	rec = call(mux, http.MethodGet, "/orders/does-not-exist", "sara", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(mux, http.MethodGet, "/orders?page=1&limit=5", "sara", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[application.OrderListResponse](t, rec)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 5, list.Limit)
}

func TestCreateOrderErrors(t *testing.T) {
	mux := newTestMux(t)

	rec := call(mux, http.MethodPost, "/orders", "", cartJSON)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(mux, http.MethodPost, "/orders", "seller-a", cartJSON)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(mux, http.MethodPost, "/orders", "sara", "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpx.ErrorBody](t, rec)
	assert.Equal(t, apperr.KindValidation, body.Kind)
	assert.Equal(t, "malformed JSON body", body.Message)

	rec = call(mux, http.MethodPost, "/orders", "sara", `{"firstName":"x","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.KindValidation, decode[httpx.ErrorBody](t, rec).Kind)
}

func TestSellerSettlementFlow(t *testing.T) {
	mux := newTestMux(t)
	rec := call(mux, http.MethodPost, "/orders", "sara", cartJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decode[application.CreateOrderResponse](t, rec).OrderID

	rec = call(mux, http.MethodGet, "/seller/orders/"+orderID, "seller-a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sellerView := decode[application.SellerOrderView](t, rec)
	require.Len(t, sellerView.Items, 1)
	assert.Equal(t, "p1", sellerView.Items[0].ProductID)

	rec = call(mux, http.MethodPut, "/seller/orders/"+orderID+"/status", "seller-a", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	upd := decode[application.UpdateItemStatusResponse](t, rec)
	assert.Equal(t, domain.ItemPaid, upd.SellerStatus)
	assert.Equal(t, domain.PaymentPending, upd.PaymentStatus)

	rec = call(mux, http.MethodPut, "/seller/orders/"+orderID+"/status", "seller-a", `{"status":"paid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.KindInvalidState, decode[httpx.ErrorBody](t, rec).Kind)

	rec = call(mux, http.MethodPut, "/seller/orders/"+orderID+"/status", "seller-b", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.KindValidation, decode[httpx.ErrorBody](t, rec).Kind)

	rec = call(mux, http.MethodPut, "/seller/orders/"+orderID+"/status", "seller-b", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaymentPaid, decode[application.UpdateItemStatusResponse](t, rec).PaymentStatus)

	rec = call(mux, http.MethodGet, "/orders/"+orderID, "sara", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaymentPaid, decode[application.OrderView](t, rec).PaymentStatus)

	rec = call(mux, http.MethodGet, "/seller/orders", "seller-b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sellerList := decode[application.SellerOrderListResponse](t, rec)
	assert.Equal(t, int64(1), sellerList.Total)

	rec = call(mux, http.MethodGet, "/seller/orders", "sara", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
