package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pharmacy/internal/domain"
)

const branchesCacheKey = "pharmacy:branches"

// ErrLockNotAcquired блокировку держит другой процесс
var ErrLockNotAcquired = errors.New("lock not acquired")

// RedisCache тонкая обёртка над клиентом redis: json-кэш и распределённые блокировки
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

// GetJSON читает значение; ok=false при промахе
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, data, ttl).Err()
}

// AcquireLock SET NX с истечением
func (c *RedisCache) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, value, ttl).Result()
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseLock снимает блокировку, только если она всё ещё наша
func (c *RedisCache) ReleaseLock(ctx context.Context, key, value string) error {
	return releaseLockScript.Run(ctx, c.Client, []string{key}, value).Err()
}

// CachedCatalog кэширует список филиалов в redis. Любая ошибка кэша
// не ломает чтение: запрос уходит в обёрнутый репозиторий.
type CachedCatalog struct {
	CatalogRepository
	cache   *RedisCache
	ttl     time.Duration
	onError func(op string, err error)
}

func NewCachedCatalog(repo CatalogRepository, cache *RedisCache, ttl time.Duration, onError func(op string, err error)) *CachedCatalog {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &CachedCatalog{CatalogRepository: repo, cache: cache, ttl: ttl, onError: onError}
}

func (c *CachedCatalog) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	var cached []domain.Branch
	ok, err := c.cache.GetJSON(ctx, branchesCacheKey, &cached)
	if err != nil {
		c.onError("get", err)
	}
	if ok {
		return cached, nil
	}

	branches, err := c.CatalogRepository.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, branchesCacheKey, branches, c.ttl); err != nil {
		c.onError("set", err)
	}
	return branches, nil
}

// Invalidate сбрасывает кэш филиалов
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.cache.Client.Del(ctx, branchesCacheKey).Err()
}

// RedisLocker блокировка через SET NX с несколькими попытками
type RedisLocker struct {
	cache    *RedisCache
	ttl      time.Duration
	attempts int
	wait     time.Duration
}

func NewRedisLocker(cache *RedisCache, ttl time.Duration) *RedisLocker {
	return &RedisLocker{cache: cache, ttl: ttl, attempts: 3, wait: 100 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	value := uuid.New().String()
	var lastErr error
	for i := 0; i < l.attempts; i++ {
		ok, err := l.cache.AcquireLock(ctx, key, value, l.ttl)
		if err != nil {
			lastErr = err
		} else if ok {
			return func() {
				// контекст запроса мог уже закончиться
				_ = l.cache.ReleaseLock(context.Background(), key, value)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.wait):
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrLockNotAcquired
}
