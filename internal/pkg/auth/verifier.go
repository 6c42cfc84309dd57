package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/httpclient"
)

// Verifier 把 bearer token 解析为调用方身份。
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// HTTPVerifier 调用外部认证服务校验 token。
type HTTPVerifier struct {
	client *httpclient.Client
	url    string
}

func NewHTTPVerifier(client *httpclient.Client, url string) *HTTPVerifier {
	return &HTTPVerifier{client: client, url: url}
}

type verifyResponse struct {
	AccountID   string   `json:"accountId"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	var resp verifyResponse
	if err := v.client.GetJSON(ctx, v.url, headers, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			return nil, pkgerrors.Wrap(apperr.ErrUnauthorized, "invalid credential")
		}
		return nil, pkgerrors.Wrap(err, "auth service")
	}
	if resp.AccountID == "" {
		return nil, pkgerrors.Wrap(apperr.ErrUnauthorized, "invalid credential")
	}
	return NewPrincipal(resp.AccountID, resp.Email, resp.DisplayName, resp.Roles), nil
}

// StaticVerifier 使用配置中的固定 token 表，用于本地开发和测试。
type StaticVerifier struct {
	tokens map[string]*Principal
}

func NewStaticVerifier(tokens []config.StaticToken) *StaticVerifier {
	m := make(map[string]*Principal, len(tokens))
	for _, t := range tokens {
		m[t.Token] = NewPrincipal(t.AccountID, t.Email, t.DisplayName, t.Roles)
	}
	return &StaticVerifier{tokens: m}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	p, ok := v.tokens[token]
	if !ok {
		return nil, pkgerrors.Wrap(apperr.ErrUnauthorized, "invalid credential")
	}
	cp := *p
	cp.Roles = append([]Role(nil), p.Roles...)
	return &cp, nil
}

// NewVerifier 根据配置选择实现。
func NewVerifier(cfg config.AuthConfig, client *httpclient.Client) Verifier {
	if cfg.Mode == "static" {
		return NewStaticVerifier(cfg.Tokens)
	}
	return NewHTTPVerifier(client, cfg.URL)
}

// BearerToken 从 Authorization 头中取出 token。
func BearerToken(r *http.Request) (string, error) {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", pkgerrors.Wrap(apperr.ErrUnauthorized, "missing bearer credential")
	}
	return fields[1], nil
}
