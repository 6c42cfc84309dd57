package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "mysql", cfg.App.StorageDriver)
	assert.Equal(t, "Asia/Karachi", cfg.Gateway.TimeZone)
	assert.Equal(t, "trust", cfg.Pricing.Mode)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  port: 9000
  storageDriver: memory
infra:
  redis:
    cacheTtl: 30s
auth:
  mode: static
  tokens:
    - token: dev-customer
      accountId: cust-1
      roles: [customer]
gateway:
  merchantId: FROM_FILE
catalog:
  stores:
    - id: store-a
      sellerId: seller-a
`)
	t.Setenv("GATEWAY_MERCHANT_ID", "FROM_ENV")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.App.Port)
	assert.Equal(t, "memory", cfg.App.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.Infra.Redis.CacheTTL)
	assert.Equal(t, "FROM_ENV", cfg.Gateway.MerchantID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Infra.Kafka.Brokers)
	require.Len(t, cfg.Auth.Tokens, 1)
	assert.Equal(t, []string{"customer"}, cfg.Auth.Tokens[0].Roles)
	require.Len(t, cfg.Catalog.Stores, 1)
	// 文件里没写的字段保留默认值
	assert.Equal(t, "PKR", cfg.Gateway.Currency)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad port":          func(c *Config) { c.App.Port = 0 },
		"unknown driver":    func(c *Config) { c.App.StorageDriver = "sqlite" },
		"mysql without dsn": func(c *Config) { c.Infra.MySQL.DSN = "" },
		"http auth no url":  func(c *Config) { c.Auth.URL = "" },
		"unknown auth":      func(c *Config) { c.Auth.Mode = "ldap" },
		"unknown pricing":   func(c *Config) { c.Pricing.Mode = "haggle" },
		"bad time zone":     func(c *Config) { c.Gateway.TimeZone = "Nowhere/City" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "app: [not a map"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
