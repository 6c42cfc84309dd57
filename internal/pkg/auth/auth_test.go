package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/httpclient"
	"marketplace/internal/pkg/httpx"
)

func TestNormalizeRoles(t *testing.T) {
	raw := []string{"admin", "Seller", "customer", "seller", "root", " CUSTOMER "}
	got := NormalizeRoles(raw)
	assert.Equal(t, []Role{RoleCustomer, RoleSeller, RoleAdmin}, got)
	assert.Equal(t, got, NormalizeRoles(raw))
	assert.Equal(t, "admin", raw[0])

	assert.Empty(t, NormalizeRoles(nil))
	assert.Empty(t, NormalizeRoles([]string{"guest"}))
}

func TestAllowed(t *testing.T) {
	admin := NewPrincipal("a", "", "", []string{"admin"})
	assert.True(t, Allowed(admin, RoleAdmin))
	assert.False(t, Allowed(admin, RoleCustomer))
	assert.False(t, Allowed(admin, RoleSeller))

	both := NewPrincipal("b", "", "", []string{"seller", "customer"})
	assert.True(t, Allowed(both, RoleCustomer))
	assert.True(t, Allowed(both, RoleSeller))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := BearerToken(r)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	r.Header.Set("Authorization", "Basic abc")
	_, err = BearerToken(r)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	r.Header.Set("Authorization", "bearer tok-1")
	tok, err := BearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

func TestRequire(t *testing.T) {
	v := NewStaticVerifier([]config.StaticToken{
		{Token: "c", AccountID: "cust-1", Roles: []string{"customer"}},
		{Token: "s", AccountID: "seller-1", Roles: []string{"seller"}},
	})
	var seen *Principal
	h := Require(v, RoleCustomer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/orders", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	rec := do("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperr.KindUnauthorized, body.Kind)

	assert.Equal(t, http.StatusUnauthorized, do("bogus").Code)
	assert.Equal(t, http.StatusForbidden, do("s").Code)

	rec = do("c")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "cust-1", seen.AccountID)
}

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"accountId":"cust-9","email":"n@x.io","displayName":"Nine","roles":["customer","seller","customer"]}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := NewHTTPVerifier(httpclient.NewClient(noop.NewTracerProvider().Tracer("test")), srv.URL)

	p, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "cust-9", p.AccountID)
	assert.Equal(t, []Role{RoleCustomer, RoleSeller}, p.Roles)

	_, err = v.Verify(context.Background(), "bad")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = v.Verify(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
}
