package auth

import (
	"net/http"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/httpx"
)

// Require 校验 bearer token 并要求调用方具有指定角色。
func Require(v Verifier, role Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			httpx.WriteError(r.Context(), w, err)
			return
		}
		p, err := v.Verify(r.Context(), token)
		if err != nil {
			httpx.WriteError(r.Context(), w, err)
			return
		}
		if !Allowed(p, role) {
			httpx.WriteError(r.Context(), w, apperr.Forbidden("role "+string(role)+" required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Allowed 判断身份能否访问要求 role 的路由。admin 不隐含客户或卖家的权限。
func Allowed(p *Principal, role Role) bool {
	switch role {
	case RoleCustomer:
		return p.HasRole(RoleCustomer)
	case RoleSeller:
		return p.HasRole(RoleSeller)
	case RoleAdmin:
		return p.HasRole(RoleAdmin)
	default:
		return false
	}
}
