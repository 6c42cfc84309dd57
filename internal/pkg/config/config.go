// internal/pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Validate 需要加载 gateway.timeZone

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是整个服务的配置树，对应 YAML 配置文件的结构。
type Config struct {
	App     AppConfig     `yaml:"app"`
	Infra   InfraConfig   `yaml:"infra"`
	Auth    AuthConfig    `yaml:"auth"`
	Gateway GatewayConfig `yaml:"gateway"`
	Pricing PricingConfig `yaml:"pricing"`
	Catalog CatalogConfig `yaml:"catalog"`
}

type AppConfig struct {
	ServiceName     string        `yaml:"serviceName"`
	Port            int           `yaml:"port"`
	LogLevel        string        `yaml:"logLevel"`
	FrontendBaseURL string        `yaml:"frontendBaseUrl"`
	StorageDriver   string        `yaml:"storageDriver"` // mysql | memory
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

type InfraConfig struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Jaeger JaegerConfig `yaml:"jaeger"`
	Nacos  NacosConfig  `yaml:"nacos"`
}

type MySQLConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
	MaxIdleConns int           `yaml:"maxIdleConns"`
	ConnMaxLife  time.Duration `yaml:"connMaxLife"`
}

type RedisConfig struct {
	Addrs    []string      `yaml:"addrs"`
	Password string        `yaml:"password"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
	Prefix   string        `yaml:"prefix"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	OrderTopic    string   `yaml:"orderTopic"`
	DeadLetter    string   `yaml:"deadLetterTopic"`
	ConsumerGroup string   `yaml:"consumerGroup"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
	Enabled  bool   `yaml:"enabled"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

// AuthConfig 描述如何把 bearer token 解析为调用方身份。
type AuthConfig struct {
	Mode   string        `yaml:"mode"` // http | static
	URL    string        `yaml:"url"`
	Tokens []StaticToken `yaml:"tokens"`
}

type StaticToken struct {
	Token       string   `yaml:"token"`
	AccountID   string   `yaml:"accountId"`
	Email       string   `yaml:"email"`
	DisplayName string   `yaml:"displayName"`
	Roles       []string `yaml:"roles"`
}

// GatewayConfig 是外部支付网关的商户参数。
type GatewayConfig struct {
	Endpoint      string `yaml:"endpoint"`
	MerchantID    string `yaml:"merchantId"`
	Password      string `yaml:"password"`
	IntegritySalt string `yaml:"integritySalt"`
	ReturnURL     string `yaml:"returnUrl"`
	Version       string `yaml:"version"`
	TxnType       string `yaml:"txnType"`
	Language      string `yaml:"language"`
	Currency      string `yaml:"currency"`
	BankID        string `yaml:"bankId"`
	ProductID     string `yaml:"productId"`
	TimeZone      string `yaml:"timeZone"`
}

// PricingConfig 决定是否信任客户端提交的 itemsTotal。
type PricingConfig struct {
	Mode       string `yaml:"mode"` // trust | recompute
	AcceptRule string `yaml:"acceptRule"`
}

// CatalogConfig 是 memory 存储驱动下的商品目录种子数据。mysql 驱动直接读 stores/products 表。
type CatalogConfig struct {
	Stores   []StoreSeed   `yaml:"stores"`
	Products []ProductSeed `yaml:"products"`
}

type StoreSeed struct {
	ID       string `yaml:"id"`
	SellerID string `yaml:"sellerId"`
	Name     string `yaml:"name"`
}

type ProductSeed struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Price   string `yaml:"price"`
	StoreID string `yaml:"storeId"`
	Image   string `yaml:"image"`
}

// Default 返回本地开发可直接运行的默认配置。
func Default() *Config {
	return &Config{
		App: AppConfig{
			ServiceName:     "order-service",
			Port:            8080,
			LogLevel:        "info",
			FrontendBaseURL: "http://localhost:3000",
			StorageDriver:   "mysql",
			RequestTimeout:  10 * time.Second,
		},
		Infra: InfraConfig{
			MySQL: MySQLConfig{
				DSN:          "root:root@tcp(localhost:3306)/marketplace?charset=utf8mb4&parseTime=True&loc=UTC",
				MaxOpenConns: 50,
				MaxIdleConns: 10,
				ConnMaxLife:  30 * time.Minute,
			},
			Redis: RedisConfig{
				Addrs:    []string{"localhost:6379"},
				CacheTTL: 5 * time.Minute,
				Prefix:   "marketplace",
			},
			Kafka: KafkaConfig{
				Brokers:       []string{"localhost:9092"},
				OrderTopic:    "order-events",
				DeadLetter:    "order-events-dlt",
				ConsumerGroup: "notification-service-group",
			},
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces", Enabled: true},
			Nacos:  NacosConfig{ServerAddrs: "localhost:8848", Group: "DEFAULT_GROUP"},
		},
		Auth: AuthConfig{Mode: "http", URL: "http://localhost:8090/auth/verify"},
		Gateway: GatewayConfig{
			Endpoint:  "https://sandbox.jazzcash.com.pk/CustomerPortal/transactionmanagement/merchantform/",
			ReturnURL: "http://localhost:8080/payments/callback",
			Version:   "1.1",
			TxnType:   "MWALLET",
			Language:  "EN",
			Currency:  "PKR",
			BankID:    "TBANK",
			ProductID: "RETL",
			TimeZone:  "Asia/Karachi",
		},
		Pricing: PricingConfig{Mode: "trust", AcceptRule: "submitted == computed"},
	}
}

// Load 读取 YAML 文件（path 为空时只用默认值），叠加环境变量后校验并设为当前配置。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.FrontendBaseURL, "FRONTEND_BASE_URL")
	setString(&cfg.App.StorageDriver, "STORAGE_DRIVER")
	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
	setString(&cfg.Infra.MySQL.DSN, "MYSQL_DSN")
	setList(&cfg.Infra.Redis.Addrs, "REDIS_ADDRS")
	setString(&cfg.Infra.Redis.Password, "REDIS_PASSWORD")
	setList(&cfg.Infra.Kafka.Brokers, "KAFKA_BROKERS")
	setString(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	setString(&cfg.Infra.Nacos.ServerAddrs, "NACOS_SERVER_ADDRS")
	setString(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	setString(&cfg.Infra.Nacos.Group, "NACOS_GROUP")
	setString(&cfg.Auth.URL, "AUTH_URL")
	setString(&cfg.Gateway.MerchantID, "GATEWAY_MERCHANT_ID")
	setString(&cfg.Gateway.Password, "GATEWAY_PASSWORD")
	setString(&cfg.Gateway.IntegritySalt, "GATEWAY_INTEGRITY_SALT")
	setString(&cfg.Gateway.ReturnURL, "GATEWAY_RETURN_URL")
	setString(&cfg.Pricing.Mode, "PRICING_MODE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = strings.Split(v, ",")
	}
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	if c.App.Port <= 0 {
		return errors.Errorf("app.port must be positive, got %d", c.App.Port)
	}
	switch c.App.StorageDriver {
	case "mysql":
		if c.Infra.MySQL.DSN == "" {
			return errors.New("infra.mysql.dsn is required for the mysql storage driver")
		}
	case "memory":
	default:
		return errors.Errorf("unknown app.storageDriver %q", c.App.StorageDriver)
	}
	switch c.Auth.Mode {
	case "http":
		if c.Auth.URL == "" {
			return errors.New("auth.url is required when auth.mode is http")
		}
	case "static":
	default:
		return errors.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	switch c.Pricing.Mode {
	case "trust", "recompute":
	default:
		return errors.Errorf("unknown pricing.mode %q", c.Pricing.Mode)
	}
	if _, err := time.LoadLocation(c.Gateway.TimeZone); err != nil {
		return errors.Wrapf(err, "gateway.timeZone %q", c.Gateway.TimeZone)
	}
	return nil
}
