package interfaces

import (
	"html/template"
	"net/http"
	"net/url"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/httpx"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/payment/application"
	"marketplace/internal/service/payment/gateway"
)

// 回调之后浏览器停留在网关页面上，用一个自动提交的表单把它带回前端
var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting…</title></head>
<body onload="document.forms[0].submit()">
<form method="GET" action="{{.Action}}">
{{range $name, $value := .Params}}<input type="hidden" name="{{$name}}" value="{{$value}}">
{{end}}<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

type redirectData struct {
	Action string
	Params map[string]string
}

// PaymentHandler 封装了支付准备与网关回调接口
type PaymentHandler struct {
	service  *application.PaymentService
	verifier auth.Verifier
	metrics  *metrics.ServerMetrics
}

func NewPaymentHandler(service *application.PaymentService, verifier auth.Verifier, m *metrics.ServerMetrics) *PaymentHandler {
	return &PaymentHandler{service: service, verifier: verifier, metrics: m}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /payments/prepare",
		h.metrics.Instrument("prepare_payment", httpx.Traced(auth.Require(h.verifier, auth.RoleCustomer, http.HandlerFunc(h.prepare)))))
	// 回调不需要登录，靠 pp_SecureHash 保证来源
	mux.Handle("POST /payments/callback", h.metrics.Instrument("payment_callback", httpx.Traced(http.HandlerFunc(h.callback))))
	mux.Handle("OPTIONS /payments/callback", http.HandlerFunc(h.preflight))
}

func (h *PaymentHandler) prepare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customer, ok := auth.FromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, apperr.ErrUnauthorized)
		return
	}

	resp, err := h.service.Prepare(ctx, customer, r.URL.Query().Get("orderId"))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (h *PaymentHandler) preflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

// callback 只回复纯文本或 HTML，网关不理解 JSON 错误体。
func (h *PaymentHandler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setCORS(w)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	fields := make(gateway.Fields, len(r.PostForm))
	for name, values := range r.PostForm {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}

	result, err := h.service.HandleCallback(ctx, fields)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindIntegrity:
			http.Error(w, "integrity check failed", http.StatusBadRequest)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	target, err := url.Parse(result.RedirectURL)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("redirect", result.RedirectURL).Msg("invalid checkout redirect url")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	params := make(map[string]string)
	for k, v := range target.Query() {
		params[k] = v[0]
	}
	target.RawQuery = ""

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := redirectPage.Execute(w, redirectData{Action: target.String(), Params: params}); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("render redirect page")
	}
}
