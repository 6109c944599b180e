package redis

import (
	"context"
	"testing"
	"time"

	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

type fakeCmdable struct {
	values map[string]string
	setNX  map[string]bool
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{values: map[string]string{}, setNX: map[string]bool{}}
}

func (f *fakeCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, exists := f.values[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakeCmdable) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func TestOptionsFromConfig(t *testing.T) {
	t.Run("requires url or address", func(t *testing.T) {
		if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
			t.Fatal("expected error for empty config")
		}
	})

	t.Run("parses url", func(t *testing.T) {
		opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "localhost:6379" || opts.DB != 3 {
			t.Fatalf("unexpected options: %+v", opts)
		}
	})

	t.Run("falls back to address fields", func(t *testing.T) {
		opts, err := optionsFromConfig(config.RedisConfig{Address: "cache:6380", Password: "secret", DB: 2, PoolSize: 8})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 || opts.PoolSize != 8 {
			t.Fatalf("unexpected options: %+v", opts)
		}
	})
}

func TestSetNXOnlyFirstWinnerAcquires(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()
	key := client.LockKey("daily-balance")

	ok, err := client.SetNX(ctx, key, "worker-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "worker-2", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to lose")
	}
}

func TestSetGetDel(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()

	if err := client.Set(ctx, "js:test", "value", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, "js:test")
	if err != nil || got != "value" {
		t.Fatalf("get mismatch: %q err=%v", got, err)
	}
	if err := client.Del(ctx, "js:test"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "js:test"); err == nil {
		t.Fatal("expected miss after delete")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	if got := client.LockKey("balance:acme"); got != "js:lock:balance:acme" {
		t.Fatalf("unexpected lock key %q", got)
	}
	if got := client.CounterKey("movements"); got != "js:counter:movements" {
		t.Fatalf("unexpected counter key %q", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Ping(ctx); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}
