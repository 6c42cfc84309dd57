package interfaces

import (
	"net/http"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/httpx"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/order/application"
)

// OrderHandler 封装了客户侧订单接口
type OrderHandler struct {
	service  *application.OrderApplicationService
	verifier auth.Verifier
	metrics  *metrics.ServerMetrics
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService, verifier auth.Verifier, m *metrics.ServerMetrics) *OrderHandler {
	return &OrderHandler{service: service, verifier: verifier, metrics: m}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /orders", h.route("create_order", h.createOrder))
	mux.Handle("GET /orders/{id}", h.route("get_order", h.getOrder))
	mux.Handle("GET /orders", h.route("list_orders", h.listOrders))
}

func (h *OrderHandler) route(name string, fn http.HandlerFunc) http.Handler {
	return h.metrics.Instrument(name, httpx.Traced(auth.Require(h.verifier, auth.RoleCustomer, fn)))
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customer, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	var req application.CreateOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	resp, err := h.service.CreateOrder(ctx, customer, &req)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customer, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	resp, err := h.service.GetOrder(ctx, customer, r.PathValue("id"))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customer, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	resp, err := h.service.ListOrders(ctx, customer, httpx.QueryInt(r, "page"), httpx.QueryInt(r, "limit"))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
