package bootstrap

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketplace/internal/pkg/config"
)

func TestNewHTTPServerAppliesRequestTimeout(t *testing.T) {
	app := config.Default().App
	app.RequestTimeout = 3 * time.Second

	srv := newHTTPServer(app, 8088, http.NewServeMux())
	assert.Equal(t, ":8088", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.WriteTimeout)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)

	// 默认配置也带超时
	assert.Equal(t, 10*time.Second, newHTTPServer(config.Default().App, 80, nil).WriteTimeout)
}
