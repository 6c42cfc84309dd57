package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/logger"
)

// ErrorBody 是返回给客户和卖家的结构化错误。
type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// WriteJSON 写出 JSON 响应。
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError 根据错误分类写出状态码和错误体；服务端错误不回显内部细节。
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(err)
	msg := apperr.Message(err)
	if kind == apperr.KindServer {
		logger.Ctx(ctx).Error().Err(err).Msg("request failed with server error")
		msg = "internal server error"
	}
	WriteJSON(w, status, ErrorBody{Kind: kind, Message: msg})
}
