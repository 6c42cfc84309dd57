package auth

import (
	"context"
	"sort"
	"strings"
)

// Role 是封闭的角色枚举。
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// ParseRole 把外部字符串解析为 Role，未知值返回 false。
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleSeller:
		return RoleSeller, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

func roleRank(r Role) int {
	switch r {
	case RoleCustomer:
		return 0
	case RoleSeller:
		return 1
	case RoleAdmin:
		return 2
	}
	return 3
}

// NormalizeRoles 去重、丢弃未知角色并按固定顺序排列。对同一输入多次调用结果相同，且不修改入参。
func NormalizeRoles(raw []string) []Role {
	seen := make(map[Role]struct{}, len(raw))
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		r, ok := ParseRole(s)
		if !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roleRank(roles[i]) < roleRank(roles[j]) })
	return roles
}

// Principal 是认证后的调用方身份。
type Principal struct {
	AccountID   string `json:"accountId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Roles       []Role `json:"roles"`
}

// NewPrincipal 构造身份并规范化角色列表。
func NewPrincipal(accountID, email, displayName string, roles []string) *Principal {
	return &Principal{
		AccountID:   accountID,
		Email:       email,
		DisplayName: displayName,
		Roles:       NormalizeRoles(roles),
	}
}

// HasRole 判断身份是否拥有某个角色。
func (p *Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal 把身份放入 context。
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext 取出身份。
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
