package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache holds at most one ready quiz per category/difficulty pair. Entries are consumed on read so
// a quiz is never served twice.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if prefix == "" {
		prefix = "quiz"
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(req Request) string {
	return strings.Join([]string{
		c.prefix,
		"prefetch",
		strings.ToLower(NormalizeFilter(req.Category)),
		strings.ToLower(NormalizeFilter(req.Difficulty)),
		fmt.Sprint(req.Count),
	}, ":")
}

// Take removes and returns the cached quiz for req. A miss returns ok=false and no error.
func (c *Cache) Take(ctx context.Context, req Request) (Quiz, bool, error) {
	data, err := c.client.GetDel(ctx, c.key(req)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Quiz{}, false, nil
		}
		return Quiz{}, false, err
	}
	var quiz Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return Quiz{}, false, fmt.Errorf("decode cached quiz: %w", err)
	}
	return quiz, true, nil
}

// Put stores quiz for req unless one is already waiting.
func (c *Cache) Put(ctx context.Context, req Request, quiz Quiz) (bool, error) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, c.key(req), data, c.ttl).Result()
}
