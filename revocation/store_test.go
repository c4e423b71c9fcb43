package revocation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestKeySpaceLayout(t *testing.T) {
	var bare KeySpace
	if got := bare.Blacklist("tok"); got != "blacklist:tok" {
		t.Fatalf("unexpected blacklist key %q", got)
	}
	if got := bare.RefreshPointer("alice"); got != "refresh_token:alice" {
		t.Fatalf("unexpected refresh key %q", got)
	}
	if got := bare.MFACode("alice"); got != "mfa_code:alice" {
		t.Fatalf("unexpected mfa key %q", got)
	}
	if got := bare.MFAAttempts("alice"); got != "mfa_attempts:alice" {
		t.Fatalf("unexpected mfa attempts key %q", got)
	}

	prefixed := KeySpace{Prefix: "tl"}
	if got := prefixed.Blacklist("tok"); got != "tl:blacklist:tok" {
		t.Fatalf("unexpected prefixed key %q", got)
	}
}

func TestRedisStoreSetGetExpire(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("expected v, got %q ok=%v err=%v", value, ok, err)
	}
	if ttl := mr.TTL("k"); ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("expected ttl in (0,2s], got %v", ttl)
	}

	mr.FastForward(2 * time.Second)

	exists, err := store.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected key to expire")
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected absent after expiry")
	}
}

func TestRedisStoreRejectsNonPositiveTTL(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)

	for _, ttl := range []time.Duration{0, -time.Second} {
		if err := store.Set(context.Background(), "k", "v", ttl); !errors.Is(err, ErrInvalidTTL) {
			t.Fatalf("expected ErrInvalidTTL for %v, got %v", ttl, err)
		}
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, "k"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if exists, _ := store.Exists(ctx, "k"); exists {
		t.Fatal("expected key deleted")
	}
}

func TestRedisStoreCompareAndDelete(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "current", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	ok, err := store.CompareAndDelete(ctx, "k", "stale")
	if err != nil || ok {
		t.Fatalf("expected mismatch to keep key, ok=%v err=%v", ok, err)
	}
	if exists, _ := store.Exists(ctx, "k"); !exists {
		t.Fatal("expected key to survive mismatch")
	}

	ok, err = store.CompareAndDelete(ctx, "k", "current")
	if err != nil || !ok {
		t.Fatalf("expected match to delete, ok=%v err=%v", ok, err)
	}
	ok, err = store.CompareAndDelete(ctx, "k", "current")
	if err != nil || ok {
		t.Fatalf("expected second delete to miss, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreCompareAndDeleteSingleWinner(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	const workers = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if ok, err := store.CompareAndDelete(ctx, "k", "v"); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb)
	mr.Close()

	if _, err := store.Exists(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := store.Set(context.Background(), "k", "v", time.Second); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Set(ctx, "a", "1", time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(time.Second)
	if exists, _ := store.Exists(ctx, "a"); exists {
		t.Fatal("expected entry to expire at exactly its deadline")
	}
	if value, ok, _ := store.Get(ctx, "b"); !ok || value != "2" {
		t.Fatalf("expected b to survive, got %q ok=%v", value, ok)
	}

	now = now.Add(time.Hour)
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected sweep to drop 1 entry, dropped %d", removed)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestMemoryStoreCompareAndDelete(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, _ := store.CompareAndDelete(ctx, "k", "x"); ok {
		t.Fatal("expected mismatch")
	}
	if ok, _ := store.CompareAndDelete(ctx, "k", "v"); !ok {
		t.Fatal("expected match")
	}
	if err := store.Set(ctx, "k", "v", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestStoreIncrSetsTTLOnCreate(t *testing.T) {
	mr, rdb := newTestRedis(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stores := map[string]interface {
		Store
		Counter
	}{
		"redis":  NewRedisStore(rdb),
		"memory": NewMemoryStore(func() time.Time { return now }),
	}
	ctx := context.Background()

	for name, store := range stores {
		for want := int64(1); want <= 3; want++ {
			got, err := store.Incr(ctx, "attempts:"+name, time.Minute)
			if err != nil {
				t.Fatalf("%s incr: %v", name, err)
			}
			if got != want {
				t.Fatalf("%s incr = %d, want %d", name, got, want)
			}
		}
		if _, err := store.Incr(ctx, "attempts:"+name, 0); !errors.Is(err, ErrInvalidTTL) {
			t.Fatalf("%s expected ErrInvalidTTL, got %v", name, err)
		}
	}

	if ttl := mr.TTL("attempts:redis"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected redis counter ttl in (0,1m], got %v", ttl)
	}

	memory := stores["memory"]
	now = now.Add(time.Minute)
	if got, _ := memory.Incr(ctx, "attempts:memory", time.Minute); got != 1 {
		t.Fatalf("expected expired counter to restart at 1, got %d", got)
	}
}
