package ratelimiter

import (
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStoreExpiresAndSweeps(t *testing.T) {
	clock := newTestClock()
	s := NewMemoryStore()
	s.now = clock.Now

	if _, err := s.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want miss", err)
	}
	_ = s.SetWithExpiration("k", 3, time.Second)
	if v, err := s.Get("k"); err != nil || v != 3 {
		t.Fatalf("Get = %d, %v", v, err)
	}

	clock.Advance(time.Second)
	if _, err := s.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired err = %v", err)
	}

	clock.Advance(2 * time.Minute)
	_ = s.SetWithExpiration("other", 1, 0)
	if s.Len() != 1 {
		t.Fatalf("sweep left %d entries", s.Len())
	}

	_ = s.Delete("other")
	if s.Len() != 0 {
		t.Fatal("delete kept the entry")
	}
}

func TestTokenBucketBurstThenWait(t *testing.T) {
	clock := newTestClock()
	b := NewTokenBucket(BucketOptions{RatePerSecond: 2, Burst: 3, Clock: clock.Now})

	for i := 0; i < 3; i++ {
		if ok, _ := b.Take("client"); !ok {
			t.Fatalf("take %d denied within burst", i)
		}
	}
	ok, wait := b.Take("client")
	if ok || wait != 500*time.Millisecond {
		t.Fatalf("take beyond burst = %v, wait %v", ok, wait)
	}
	if ok, _ := b.Take("other"); !ok {
		t.Fatal("keys are not isolated")
	}

	clock.Advance(500 * time.Millisecond)
	if ok, _ := b.Take("client"); !ok {
		t.Fatal("token did not refill")
	}
}

func TestTokenBucketKeepsPartialRefill(t *testing.T) {
	clock := newTestClock()
	b := NewTokenBucket(BucketOptions{RatePerSecond: 1, Burst: 1, Clock: clock.Now})

	if ok, _ := b.Take("k"); !ok {
		t.Fatal("first take denied")
	}
	clock.Advance(600 * time.Millisecond)
	if ok, _ := b.Take("k"); ok {
		t.Fatal("take allowed before a whole token refilled")
	}
	clock.Advance(400 * time.Millisecond)
	if ok, _ := b.Take("k"); !ok {
		t.Fatal("refill progress was lost between calls")
	}
}

func TestTokenBucketResetAndRemaining(t *testing.T) {
	clock := newTestClock()
	b := NewTokenBucket(BucketOptions{RatePerSecond: 1, Burst: 4, Clock: clock.Now})

	b.Take("k")
	b.Take("k")
	if got := b.Remaining("k"); got != 2 {
		t.Fatalf("remaining = %d", got)
	}
	b.Reset("k")
	if got := b.Remaining("k"); got != 4 {
		t.Fatalf("remaining after reset = %d", got)
	}
}

func TestSharedStoreKeepsLimitersApart(t *testing.T) {
	store := NewMemoryStore()
	httpLimiter := New(Options{MaxRatePerSecond: 1, MaxBurst: 1, Store: store})
	events := NewEventBudget(store, map[EventClass]Budget{
		ControlEvents: {Limit: 1, Window: time.Hour},
	})

	if !httpLimiter.Allow("c1") {
		t.Fatal("http request denied")
	}
	if ok, _ := events.Allow("c1", ControlEvents); !ok {
		t.Fatal("http traffic spent the websocket budget")
	}
}

func TestSourceKey(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"peer address without port", "", "10.0.0.1"},
		{"single hop", "203.0.113.7", "203.0.113.7"},
		{"first of a forwarded list", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "10.0.0.1:1234"
			if tt.header != "" {
				r.Header.Set("X-Forwarded-For", tt.header)
			}
			if got := rl.GetSourceKey(r); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventBudgetClasses(t *testing.T) {
	eb := NewEventBudget(nil, map[EventClass]Budget{
		ControlEvents: {Limit: 2, Window: time.Hour},
		EditorEvents:  {Limit: 5, Window: time.Hour},
	})

	for i := 0; i < 2; i++ {
		if ok, _ := eb.Allow("conn", ControlEvents); !ok {
			t.Fatalf("control event %d denied", i)
		}
	}
	ok, retry := eb.Allow("conn", ControlEvents)
	if ok || retry <= 0 {
		t.Fatalf("third control event = %v, retry %v", ok, retry)
	}

	for i := 0; i < 5; i++ {
		if ok, _ := eb.Allow("conn", EditorEvents); !ok {
			t.Fatalf("editor event %d denied after control budget ran out", i)
		}
	}
	if ok, _ := eb.Allow("conn", "submit"); ok {
		t.Fatal("unbudgeted class skipped the control budget")
	}

	eb.Forget("conn")
	if ok, _ := eb.Allow("conn", ControlEvents); !ok {
		t.Fatal("forgotten connection still limited")
	}
}

func TestNilEventBudgetAllows(t *testing.T) {
	var eb *EventBudget
	if ok, _ := eb.Allow("conn", EditorEvents); !ok {
		t.Fatal("nil budget denied")
	}
	eb.Forget("conn")
}

func TestUnreachableRedisFailsOpen(t *testing.T) {
	store := NewRedis(RedisOptions{Addr: "127.0.0.1:1"})
	defer store.Close()

	if _, err := store.Get("k"); err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get on a dead server = %v", err)
	}

	b := NewTokenBucket(BucketOptions{RatePerSecond: 1, Burst: 1, Store: store})
	for i := 0; i < 3; i++ {
		if ok, _ := b.Take("k"); !ok {
			t.Fatalf("take %d denied while the store is down", i)
		}
	}
}
