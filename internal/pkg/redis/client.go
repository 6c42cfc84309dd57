package redis

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 的 UniversalClient：一个地址时是单机，多个地址时是集群。
type Client struct {
	client goredis.UniversalClient
	prefix string
}

// NewClient 连接 Redis 并做一次 PING。
func NewClient(ctx context.Context, addrs []string, password, prefix string) (*Client, error) {
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        addrs,
		Password:     password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", strings.Join(addrs, ","))
	}
	return &Client{client: rdb, prefix: prefix}, nil
}

// NewFromUniversal 用已有的客户端构造（测试或自定义连接时使用）。
func NewFromUniversal(rdb goredis.UniversalClient, prefix string) *Client {
	return &Client{client: rdb, prefix: prefix}
}

// GetClient 返回底层客户端。
func (c *Client) GetClient() goredis.UniversalClient {
	return c.client
}

// Key 给业务 key 加上统一前缀，例如 marketplace:store:seller:42。
func (c *Client) Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(c.prefix)
	for _, p := range parts {
		b.WriteString(":")
		b.WriteString(p)
	}
	return b.String()
}

func (c *Client) Close() error {
	return c.client.Close()
}
