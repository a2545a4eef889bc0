package rate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "5/60", want: Policy{MaxRequests: 5, Window: time.Minute}},
		{in: " 10 / 30 ", want: Policy{MaxRequests: 10, Window: 30 * time.Second}},
		{in: "5", wantErr: true},
		{in: "0/60", wantErr: true},
		{in: "5/0", wantErr: true},
		{in: "x/60", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPolicy) {
					t.Fatalf("expected ErrInvalidPolicy, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.want.String() {
				t.Fatalf("String mismatch: %s", got.String())
			}
		})
	}
}

func TestMemoryBackendWindow(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(DefaultPolicy())
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		ok, err := b.Allow(ctx, "k")
		if err != nil || !ok {
			t.Fatalf("attempt %d should be allowed, ok=%v err=%v", i+1, ok, err)
		}
		now = now.Add(time.Second)
	}
	if ok, _ := b.Allow(ctx, "k"); ok {
		t.Fatal("6th attempt within the window must be rejected")
	}
	if ok, _ := b.Allow(ctx, "other"); !ok {
		t.Fatal("other keys must be unaffected")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := b.Allow(ctx, "k"); !ok {
		t.Fatal("attempt after the window must be allowed again")
	}
}

func TestMemoryBackendSlidesPerEntry(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(Policy{MaxRequests: 2, Window: 10 * time.Second})
	start := time.Unix(1_700_000_000, 0)
	now := start
	b.now = func() time.Time { return now }

	_, _ = b.Allow(ctx, "k") // t=0
	now = start.Add(5 * time.Second)
	_, _ = b.Allow(ctx, "k") // t=5

	now = start.Add(9 * time.Second)
	if ok, _ := b.Allow(ctx, "k"); ok {
		t.Fatal("expected rejection while both entries are inside the window")
	}
	now = start.Add(11 * time.Second)
	if ok, _ := b.Allow(ctx, "k"); !ok {
		t.Fatal("expected the t=0 entry to have slid out")
	}
}

func TestMemoryBackendResetAndPrune(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(Policy{MaxRequests: 1, Window: time.Second})
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }

	_, _ = b.Allow(ctx, "k")
	if ok, _ := b.Allow(ctx, "k"); ok {
		t.Fatal("expected rejection before reset")
	}
	if err := b.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := b.Allow(ctx, "k"); !ok {
		t.Fatal("expected allow after reset")
	}

	for i := 0; i < pruneEvery; i++ {
		_, _ = b.Allow(ctx, "burst-"+strconv.Itoa(i))
	}
	now = now.Add(time.Hour)
	for i := 0; i < pruneEvery; i++ {
		_, _ = b.Allow(ctx, "fresh")
	}
	if keys := b.Keys(); keys > 2 {
		t.Fatalf("expected idle keys to be pruned, %d remain", keys)
	}
}

func TestMemoryBackendConcurrentAllowNeverExceedsMax(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(Policy{MaxRequests: 5, Window: time.Minute})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := b.Allow(ctx, "shared"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 5 {
		t.Fatalf("expected exactly 5 admitted attempts, got %d", allowed.Load())
	}
}

func TestRedisBackendCounterAndTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	b := NewRedisBackend(rdb, DefaultPolicy())

	for i := 0; i < 5; i++ {
		ok, err := b.Allow(ctx, "1.2.3.4:a@x.com")
		if err != nil || !ok {
			t.Fatalf("attempt %d should be allowed, ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := b.Allow(ctx, "1.2.3.4:a@x.com")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("6th attempt must be rejected")
	}

	if ttl := mr.TTL(keyPrefix + "1.2.3.4:a@x.com"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected TTL set on first hit, got %v", ttl)
	}

	mr.FastForward(61 * time.Second)
	if ok, _ := b.Allow(ctx, "1.2.3.4:a@x.com"); !ok {
		t.Fatal("attempt after the window must be allowed")
	}

	if err := b.Reset(ctx, "1.2.3.4:a@x.com"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if mr.Exists(keyPrefix + "1.2.3.4:a@x.com") {
		t.Fatal("expected key to be deleted on reset")
	}
}

func TestRedisBackendConcurrentAllowNeverExceedsMax(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	b := NewRedisBackend(rdb, DefaultPolicy())

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := b.Allow(ctx, "race"); err == nil && ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 5 {
		t.Fatalf("expected exactly 5 admitted attempts, got %d", allowed.Load())
	}
}

func TestRedisBackendErrorWrapped(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()

	_, err := NewRedisBackend(rdb, DefaultPolicy()).Allow(context.Background(), "k")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestFallbackBackendDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	core, logs := observer.New(zapcore.WarnLevel)

	fb := NewFallbackBackend(NewRedisBackend(rdb, DefaultPolicy()), NewMemoryBackend(DefaultPolicy()), zap.New(core))
	mr.Close()

	for i := 0; i < 5; i++ {
		ok, err := fb.Allow(ctx, "k")
		if err != nil || !ok {
			t.Fatalf("attempt %d should be allowed by the fallback, ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := fb.Allow(ctx, "k")
	if err != nil {
		t.Fatalf("fallback must not surface errors: %v", err)
	}
	if ok {
		t.Fatal("fallback must still enforce the limit")
	}

	if fb.Fallbacks() != 6 {
		t.Fatalf("expected 6 fallbacks, got %d", fb.Fallbacks())
	}
	if logs.FilterMessage("shared rate limit backend failed, using in-process limiter").Len() != 6 {
		t.Fatalf("expected a warning per degraded call, got %d", logs.Len())
	}
}
