package interfaces

import (
	"net/http"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/httpx"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/order/application"
)

// SellerHandler 封装了卖家侧的订单查询与结算接口
type SellerHandler struct {
	service  *application.SettlementService
	verifier auth.Verifier
	metrics  *metrics.ServerMetrics
}

func NewSellerHandler(service *application.SettlementService, verifier auth.Verifier, m *metrics.ServerMetrics) *SellerHandler {
	return &SellerHandler{service: service, verifier: verifier, metrics: m}
}

func (h *SellerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /seller/orders", h.route("seller_list_orders", h.listOrders))
	mux.Handle("GET /seller/orders/{id}", h.route("seller_get_order", h.getOrder))
	mux.Handle("PUT /seller/orders/{id}/status", h.route("seller_update_status", h.updateStatus))
}

func (h *SellerHandler) route(name string, fn http.HandlerFunc) http.Handler {
	return h.metrics.Instrument(name, httpx.Traced(auth.Require(h.verifier, auth.RoleSeller, fn)))
}

func (h *SellerHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seller, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	resp, err := h.service.ListSellerOrders(ctx, seller, httpx.QueryInt(r, "page"), httpx.QueryInt(r, "limit"))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SellerHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seller, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	resp, err := h.service.GetSellerOrder(ctx, seller, r.PathValue("id"))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SellerHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seller, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	var req application.UpdateItemStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	resp, err := h.service.UpdateItemStatus(ctx, seller, r.PathValue("id"), req.Status)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
