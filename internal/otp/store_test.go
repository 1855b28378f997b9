package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func TestMemoryStore_PutReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().Add(5 * time.Minute)

	_ = store.Put(ctx, "p1", Entry{CodeHash: "a", ExpiresAt: exp})
	_ = store.Put(ctx, "p1", Entry{CodeHash: "b", ExpiresAt: exp})

	e, ok, err := store.Get(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if e.CodeHash != "b" {
		t.Errorf("CodeHash = %q, want %q", e.CodeHash, "b")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestMemoryStore_CompareAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	e := Entry{CodeHash: "a", ExpiresAt: time.Now().Add(time.Minute)}
	_ = store.Put(ctx, "p1", e)

	if won, _ := store.CompareAndDelete(ctx, "p1", Entry{CodeHash: "x", ExpiresAt: e.ExpiresAt}); won {
		t.Fatal("CompareAndDelete should not match a different entry")
	}
	if won, _ := store.CompareAndDelete(ctx, "p1", e); !won {
		t.Fatal("CompareAndDelete should remove a matching entry")
	}
	if won, _ := store.CompareAndDelete(ctx, "p1", e); won {
		t.Fatal("CompareAndDelete should report false once gone")
	}
}

func TestMemoryStore_Purge(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowF = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Put(ctx, "expired", Entry{CodeHash: "a", ExpiresAt: now})
	_ = store.Put(ctx, "live", Entry{CodeHash: "b", ExpiresAt: now.Add(time.Second)})

	if n := store.Purge(ctx); n != 1 {
		t.Errorf("Purge = %d, want 1", n)
	}
	if _, ok, _ := store.Get(ctx, "live"); !ok {
		t.Error("live entry should survive purge")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().Add(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			_ = store.Put(ctx, "phone-"+string(rune('0'+id)), Entry{CodeHash: "h", ExpiresAt: exp})
		}(i)
		go func(id int) {
			defer wg.Done()
			_, _, _ = store.Get(ctx, "phone-"+string(rune('0'+id)))
		}(i)
	}
	wg.Wait()
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	exp := time.Now().Add(10 * time.Minute)
	e := Entry{CodeHash: "$2a$04$abc|def", ExpiresAt: exp}

	if err := store.Put(ctx, "+15551234567", e); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "+15551234567")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.CodeHash != e.CodeHash || !got.ExpiresAt.Equal(e.ExpiresAt) {
		t.Errorf("Get = %+v, want %+v", got, e)
	}
	if ttl := mr.TTL("otp:+15551234567"); ttl <= 0 || ttl > 10*time.Minute {
		t.Errorf("TTL = %v, want (0, 10m]", ttl)
	}
}

func TestRedisStore_MissingKey(t *testing.T) {
	store, _ := newRedisStore(t)
	_, ok, err := store.Get(context.Background(), "nobody")
	if err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}
}

func TestRedisStore_CompareAndDelete(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	e := Entry{CodeHash: "h1", ExpiresAt: time.Now().Add(time.Minute)}
	_ = store.Put(ctx, "p", e)

	won, err := store.CompareAndDelete(ctx, "p", Entry{CodeHash: "h2", ExpiresAt: e.ExpiresAt})
	if err != nil || won {
		t.Fatalf("mismatch: won=%v err=%v", won, err)
	}
	won, err = store.CompareAndDelete(ctx, "p", e)
	if err != nil || !won {
		t.Fatalf("match: won=%v err=%v", won, err)
	}
	if mr.Exists("otp:p") {
		t.Error("key should be deleted")
	}
}

func TestRedisStore_WithAuthenticator(t *testing.T) {
	store, _ := newRedisStore(t)
	users := newFakeUsers()
	sent := newCapture()
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	auth := NewAuthenticator(store, users, sent, WithHashCost(4), WithLogger(quiet))
	ctx := context.Background()

	if err := auth.Issue(ctx, phone); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := sent.last(phone)
	if _, err := auth.Verify(ctx, phone, code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := auth.Verify(ctx, phone, code); err == nil {
		t.Fatal("second Verify should fail")
	}
}

func TestStartPurger_InvalidSpec(t *testing.T) {
	if _, err := StartPurger("every now and then", NewMemoryStore(), logrus.New()); err == nil {
		t.Fatal("StartPurger should reject an invalid spec")
	}
}
