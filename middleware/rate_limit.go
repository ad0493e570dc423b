package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"sporty/utils"
)

// NotifyRateLimiter limits how often one user can send reminder emails for
// the same event. A nil storage keeps counters in process memory.
func NotifyRateLimiter(max int, storage fiber.Storage) fiber.Handler {
	if max < 1 {
		max = 1
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			userID := c.IP()
			if user := CurrentUser(c); user != nil {
				userID = user.ID
			}
			return utils.GenerateRateLimitKey(userID, c.Params("id"), c.Route().Path)
		},
		LimitReached: func(c *fiber.Ctx) error {
			fields := map[string]interface{}{
				"endpoint":   c.Path(),
				"ip":         c.IP(),
				"user_agent": c.Get("User-Agent"),
			}
			if user := CurrentUser(c); user != nil {
				fields["user_id"] = user.ID
			}
			utils.LogEvent("rate_limit_hit", fields)

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Too many reminders. Please wait before sending again.",
				"retry_after": "1 minute",
			})
		},
		Storage: storage,
	})
}

// RedisStorage implements fiber.Storage on a shared Redis client. Keys are
// namespaced so Reset never touches the rest of the database.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	val, err := r.client.Get(context.Background(), r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return r.client.Set(context.Background(), r.prefix+key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), r.prefix+key).Err()
}

func (r *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the client is owned by the caller.
func (r *RedisStorage) Close() error {
	return nil
}
