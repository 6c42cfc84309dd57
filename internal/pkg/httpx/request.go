package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"marketplace/internal/pkg/apperr"
)

// maxBodyBytes 限制请求体大小，购物车不会超过这个量级
const maxBodyBytes = 1 << 20

// Traced 从请求头中恢复上游的链路上下文，后续的中间件和 handler 都在同一条 trace 上。
func Traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DecodeJSON 解析 JSON 请求体，格式错误归为 ValidationError。
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("malformed JSON body")
	}
	return nil
}

// QueryInt 读取整数查询参数，缺失或非法时返回 0，由调用方套用默认值。
func QueryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
