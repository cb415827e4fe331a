package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestCachedCatalog_FallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	var failures []string
	cached := NewCachedCatalog(seededStore(t), NewRedisCache(client), time.Minute, func(op string, err error) {
		failures = append(failures, op)
	})

	branches, err := cached.ListBranches(ctx)
	if err != nil {
		t.Fatalf("list branches: %v", err)
	}
	if len(branches) != len(DemoBranches) {
		t.Fatalf("expected %d branches, got %d", len(DemoBranches), len(branches))
	}
	if len(failures) != 2 || failures[0] != "get" || failures[1] != "set" {
		t.Fatalf("expected get and set failures to be reported, got %v", failures)
	}

	// остальные методы проксируются без кэша
	products, err := cached.ListProducts(ctx)
	if err != nil || len(products) != len(DemoProducts) {
		t.Fatalf("passthrough: %d %v", len(products), err)
	}
}

func TestRedisLocker_ReportsBrokerError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	locker := NewRedisLocker(NewRedisCache(client), time.Second)
	locker.wait = time.Millisecond

	unlock, err := locker.Lock(context.Background(), "lock:test")
	if err == nil || unlock != nil {
		t.Fatalf("expected error from unreachable redis")
	}
	if errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("connection failure must not look like a held lock: %v", err)
	}
}
