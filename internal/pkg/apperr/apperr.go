// Package apperr 定义了跨服务共享的错误分类。
// 业务代码用 github.com/pkg/errors 包装这些哨兵错误，接口层用 errors.Is 判断分类。
package apperr

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrIntegrity    = errors.New("integrity error")
)

// Kind 是对外暴露的错误类别名称。
type Kind string

const (
	KindValidation   Kind = "ValidationError"
	KindUnauthorized Kind = "Unauthorized"
	KindForbidden    Kind = "Forbidden"
	KindNotFound     Kind = "NotFound"
	KindInvalidState Kind = "InvalidState"
	KindIntegrity    Kind = "IntegrityError"
	KindServer       Kind = "ServerError"
)

// KindOf 把任意错误归入一个类别，未识别的错误一律视为 ServerError。
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	default:
		return KindServer
	}
}

// HTTPStatus 返回错误类别对应的 HTTP 状态码。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidState, KindIntegrity:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Validation 是 errors.Wrap(ErrValidation, msg) 的简写。
func Validation(msg string) error {
	return errors.Wrap(ErrValidation, msg)
}

// NotFound 是 errors.Wrap(ErrNotFound, msg) 的简写。
func NotFound(msg string) error {
	return errors.Wrap(ErrNotFound, msg)
}

// InvalidState 是 errors.Wrap(ErrInvalidState, msg) 的简写。
func InvalidState(msg string) error {
	return errors.Wrap(ErrInvalidState, msg)
}

// Forbidden 是 errors.Wrap(ErrForbidden, msg) 的简写。
func Forbidden(msg string) error {
	return errors.Wrap(ErrForbidden, msg)
}

// Message 返回去掉类别后缀的可读信息，例如 "firstName is required"。
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrInvalidState, ErrIntegrity} {
		if errors.Is(err, sentinel) {
			if trimmed := strings.TrimSuffix(msg, ": "+sentinel.Error()); trimmed != msg {
				return trimmed
			}
		}
	}
	return msg
}
