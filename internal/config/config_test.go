package config

import (
	"testing"
	"time"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()
	if cfg.Checkout.ConfirmDelay != 2*time.Second {
		t.Fatalf("confirm delay: %v", cfg.Checkout.ConfirmDelay)
	}
	if cfg.Checkout.FeaturedCount != 6 {
		t.Fatalf("featured: %d", cfg.Checkout.FeaturedCount)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("driver: %s", cfg.Store.Driver)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("CHECKOUT_CONFIRM_DELAY", "150ms")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadEnv()
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("driver: %s", cfg.Store.Driver)
	}
	if cfg.Checkout.ConfirmDelay != 150*time.Millisecond {
		t.Fatalf("confirm delay: %v", cfg.Checkout.ConfirmDelay)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Postgres.MaxOpenConns != 10 {
		t.Fatalf("bad int must fall back, got %d", cfg.Postgres.MaxOpenConns)
	}
}
