// Package redis provides a ChunkCache stored in Redis, so several server
// instances behind a load balancer can share chunk text.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ChunkCache = (*Cache)(nil)

// DefaultKeyPrefix prefixes every key written by the cache.
const DefaultKeyPrefix = "ragdesk:chunk:"

// scanCount is the SCAN page size used when deleting a namespace.
const scanCount = 100

// Config holds connection settings.
type Config struct {
	Address     string
	Password    string
	DB          int
	TTL         time.Duration
	KeyPrefix   string
	DialTimeout time.Duration
}

// Cache is a Redis-backed chunk cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: redis address is required", domain.ErrInvalidInput)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Address, err)
	}

	return &Cache{client: client, ttl: cfg.TTL, prefix: cfg.KeyPrefix}, nil
}

// Put writes all texts in one pipeline.
func (c *Cache) Put(ctx context.Context, namespace string, texts map[string]string) error {
	if len(texts) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	defer pipe.Close()

	for id, text := range texts {
		pipe.Set(ctx, c.key(namespace, id), text, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache put %s: %w", namespace, err)
	}
	return nil
}

// Get fetches texts with MGET. Missing keys are left out.
func (c *Cache) Get(ctx context.Context, namespace string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(namespace, id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache get %s: %w", namespace, err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[ids[i]] = s
		}
	}
	return out, nil
}

// DeleteNamespace scans the namespace's keys and deletes them page by page.
func (c *Cache) DeleteNamespace(ctx context.Context, namespace string) error {
	pattern := c.namespacePattern(namespace)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("cache scan %s: %w", namespace, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete %s: %w", namespace, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(namespace, id string) string {
	return c.prefix + namespace + ":" + id
}

func (c *Cache) namespacePattern(namespace string) string {
	return globEscape(c.prefix+namespace) + ":*"
}

// globEscape quotes the characters SCAN MATCH treats specially.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
