package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newRedisProvider(t *testing.T) (*RedisProvider, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	p, err := NewRedisProvider(RedisConfig{Addr: srv.Addr(), KeyPrefix: "flightwatch:"})
	if err != nil {
		t.Fatalf("new redis provider: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, srv
}

func TestRedisProviderGetSetDel(t *testing.T) {
	p, srv := newRedisProvider(t)
	ctx := context.Background()

	if _, err := p.Get(ctx, "board"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := p.Set(ctx, "board", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := srv.Get("flightwatch:board"); err != nil || got != "v1" {
		t.Fatalf("expected prefixed key on the server, got %q (%v)", got, err)
	}
	if srv.TTL("flightwatch:board") != time.Minute {
		t.Fatalf("unexpected ttl %v", srv.TTL("flightwatch:board"))
	}
	if got, err := p.Get(ctx, "board"); err != nil || string(got) != "v1" {
		t.Fatalf("unexpected get: %q (%v)", got, err)
	}

	if err := p.Del(ctx, "board"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if srv.Exists("flightwatch:board") {
		t.Fatalf("key should be deleted")
	}
}

func TestRedisProviderSetNXClaims(t *testing.T) {
	p, srv := newRedisProvider(t)
	ctx := context.Background()
	key := "dedup:pressure_limit:critical"

	claimed, err := p.SetNX(ctx, key, []byte("first"), time.Minute)
	if err != nil || !claimed {
		t.Fatalf("first claim should win: %v %v", claimed, err)
	}
	claimed, err = p.SetNX(ctx, key, []byte("second"), time.Minute)
	if err != nil || claimed {
		t.Fatalf("second claim should lose: %v %v", claimed, err)
	}
	if got, _ := srv.Get("flightwatch:" + key); got != "first" {
		t.Fatalf("losing claim overwrote value: %q", got)
	}

	srv.FastForward(2 * time.Minute)
	if claimed, err := p.SetNX(ctx, key, []byte("third"), time.Minute); err != nil || !claimed {
		t.Fatalf("claim should succeed after expiry: %v %v", claimed, err)
	}
}

func TestRedisProviderSharedAcrossInstances(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := RedisConfig{Addr: srv.Addr(), KeyPrefix: "flightwatch:"}
	a, err := NewRedisProvider(cfg)
	if err != nil {
		t.Fatalf("provider a: %v", err)
	}
	defer a.Close()
	b, err := NewRedisProvider(cfg)
	if err != nil {
		t.Fatalf("provider b: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	if ok, _ := a.SetNX(ctx, "dedup:high_cabin_vs:high", []byte("a"), time.Minute); !ok {
		t.Fatalf("instance a should claim first")
	}
	if ok, _ := b.SetNX(ctx, "dedup:high_cabin_vs:high", []byte("b"), time.Minute); ok {
		t.Fatalf("instance b should see the claim from a")
	}
}

func TestRedisProviderServerErrors(t *testing.T) {
	p, srv := newRedisProvider(t)
	srv.SetError("ERR server unavailable")
	defer srv.SetError("")

	if _, err := p.Get(context.Background(), "k"); err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("server error must not look like a miss, got %v", err)
	}
	if _, err := p.SetNX(context.Background(), "k", nil, time.Minute); err == nil {
		t.Fatalf("expected setnx error")
	}
}

func TestNewRedisProviderPingFails(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	if _, err := NewRedisProvider(RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatalf("expected ping failure against a closed server")
	}
}
