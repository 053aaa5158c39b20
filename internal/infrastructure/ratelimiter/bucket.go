package ratelimiter

import (
	"hash/fnv"
	"math"
	"sync"
	"time"
)

// Bucket levels are stored in thousandths of a token so slow refill rates
// keep their partial progress between calls.
const milli = 1000

const lockStripes = 64

// TokenBucket refills at a steady rate up to Burst tokens per key.
type TokenBucket struct {
	prefix string
	rate   float64 // tokens per second, which is thousandths per millisecond
	burst  int
	ttl    time.Duration
	store  Store
	now    func() time.Time
	locks  [lockStripes]sync.Mutex
}

type BucketOptions struct {
	// Prefix namespaces this bucket's keys inside a shared Store.
	Prefix        string
	RatePerSecond float64
	Burst         int
	// TTL drops idle state. It defaults to the time a drained bucket needs
	// to refill completely.
	TTL   time.Duration
	Store Store
	Clock func() time.Time
}

func NewTokenBucket(o BucketOptions) *TokenBucket {
	if o.Store == nil {
		o.Store = NewMemoryStore()
	}
	if o.Burst <= 0 {
		o.Burst = int(math.Ceil(o.RatePerSecond))
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
		if o.RatePerSecond > 0 {
			o.TTL = max(o.TTL, time.Duration(float64(o.Burst)/o.RatePerSecond*float64(time.Second)))
		}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	return &TokenBucket{
		prefix: o.Prefix,
		rate:   o.RatePerSecond,
		burst:  o.Burst,
		ttl:    o.TTL,
		store:  o.Store,
		now:    o.Clock,
	}
}

type bucketState struct {
	level int   // thousandths of a token
	stamp int64 // unix milliseconds of the last refill
}

func (b *TokenBucket) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &b.locks[h.Sum32()%lockStripes]
}

func (b *TokenBucket) keys(key string) (level, stamp string) {
	return b.prefix + key + ":level", b.prefix + key + ":stamp"
}

// load reads key's state. Missing or unreadable state starts full, so a
// failing store lets traffic through.
func (b *TokenBucket) load(key string, now int64) bucketState {
	levelKey, stampKey := b.keys(key)
	level, levelErr := b.store.Get(levelKey)
	stamp, stampErr := b.store.Get(stampKey)
	if levelErr != nil || stampErr != nil {
		return bucketState{level: b.burst * milli, stamp: now}
	}
	return bucketState{level: level, stamp: int64(stamp)}
}

func (b *TokenBucket) save(key string, st bucketState) {
	levelKey, stampKey := b.keys(key)
	_ = b.store.SetWithExpiration(levelKey, st.level, b.ttl)
	_ = b.store.SetWithExpiration(stampKey, int(st.stamp), b.ttl)
}

func (b *TokenBucket) refill(st bucketState, now int64) bucketState {
	if elapsed := now - st.stamp; elapsed > 0 {
		st.level += int(float64(elapsed) * b.rate)
		st.stamp = now
	}
	if full := b.burst * milli; st.level > full {
		st.level = full
	}
	return st
}

// Take spends one token for key. An empty bucket reports how long until the
// next token.
func (b *TokenBucket) Take(key string) (bool, time.Duration) {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	now := b.now().UnixMilli()
	st := b.refill(b.load(key, now), now)
	if st.level >= milli {
		st.level -= milli
		b.save(key, st)
		return true, 0
	}
	b.save(key, st)
	return false, b.wait(st.level)
}

func (b *TokenBucket) wait(level int) time.Duration {
	if b.rate <= 0 {
		return b.ttl
	}
	return time.Duration(math.Ceil(float64(milli-level)/b.rate)) * time.Millisecond
}

// Remaining reports whole tokens left for key without spending one.
func (b *TokenBucket) Remaining(key string) int {
	mu := b.lock(key)
	mu.Lock()
	defer mu.Unlock()

	now := b.now().UnixMilli()
	return b.refill(b.load(key, now), now).level / milli
}

func (b *TokenBucket) Burst() int {
	return b.burst
}

// Reset forgets key, leaving it a full bucket on next use.
func (b *TokenBucket) Reset(key string) {
	levelKey, stampKey := b.keys(key)
	_ = b.store.Delete(levelKey, stampKey)
}
