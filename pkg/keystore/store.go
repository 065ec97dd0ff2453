// Package keystore implements a sharded in-process key-value store with
// per-key TTL. It backs the in-memory idempotency guard and is safe for
// concurrent use.
package keystore

import (
    "container/heap"
    "sync"
    "sync/atomic"
    "time"
)

// Options tunes the store.
type Options struct {
    Shards int // number of shards (default 64)
}

func (o Options) withDefaults() Options {
    if o.Shards <= 0 {
        o.Shards = 64
    }
    return o
}

// Store is a sharded map with lazy expiry plus a background expirer driven
// by a min-heap of deadlines.
type Store struct {
    opts    Options
    shards  []shard
    expq    *expQueue
    closeCh chan struct{}
    wg      sync.WaitGroup

    nowFn func() time.Time

    mSets    atomic.Uint64
    mHits    atomic.Uint64
    mMisses  atomic.Uint64
    mExpired atomic.Uint64
}

type shard struct {
    mu sync.RWMutex
    m  map[string]*entry
}

type entry struct {
    val      []byte
    expireAt int64 // unix nano; 0 = no expiry
}

func New(opts Options) *Store {
    opts = opts.withDefaults()
    s := &Store{
        opts:    opts,
        shards:  make([]shard, opts.Shards),
        expq:    &expQueue{},
        closeCh: make(chan struct{}),
        nowFn:   time.Now,
    }
    for i := range s.shards {
        s.shards[i].m = make(map[string]*entry, 64)
    }
    heap.Init(s.expq)
    s.wg.Add(1)
    go s.expirer()
    return s
}

// Close stops the expirer and waits for it to exit.
func (s *Store) Close() {
    close(s.closeCh)
    s.expq.Lock()
    if s.expq.cond != nil {
        s.expq.cond.Broadcast()
    }
    s.expq.Unlock()
    s.wg.Wait()
}

func (s *Store) shardFor(key string) *shard {
    // FNV-1a 64
    var h uint64 = 1469598103934665603
    for i := 0; i < len(key); i++ {
        h ^= uint64(key[i])
        h *= 1099511628211
    }
    return &s.shards[int(h%uint64(len(s.shards)))]
}

func (s *Store) deadline(ttl time.Duration) int64 {
    if ttl <= 0 {
        return 0
    }
    return s.nowFn().Add(ttl).UnixNano()
}

// Set stores val under key. Returns true if the key was created rather than
// overwritten.
func (s *Store) Set(key string, val []byte, ttl time.Duration) bool {
    expAt := s.deadline(ttl)
    v := append([]byte(nil), val...)

    sh := s.shardFor(key)
    sh.mu.Lock()
    _, existed := sh.m[key]
    sh.m[key] = &entry{val: v, expireAt: expAt}
    if expAt != 0 {
        s.enqueueExpire(key, expAt)
    }
    sh.mu.Unlock()
    s.mSets.Add(1)
    return !existed
}

// SetIfAbsent stores val only when key is missing or expired. Returns true
// when the value was stored.
func (s *Store) SetIfAbsent(key string, val []byte, ttl time.Duration) bool {
    expAt := s.deadline(ttl)
    now := s.nowFn().UnixNano()

    sh := s.shardFor(key)
    sh.mu.Lock()
    if e, ok := sh.m[key]; ok && (e.expireAt == 0 || e.expireAt > now) {
        sh.mu.Unlock()
        return false
    }
    sh.m[key] = &entry{val: append([]byte(nil), val...), expireAt: expAt}
    if expAt != 0 {
        s.enqueueExpire(key, expAt)
    }
    sh.mu.Unlock()
    s.mSets.Add(1)
    return true
}

// Get returns a copy of the value and whether it was present and unexpired.
func (s *Store) Get(key string) ([]byte, bool) {
    sh := s.shardFor(key)
    sh.mu.RLock()
    e, ok := sh.m[key]
    if !ok {
        sh.mu.RUnlock()
        s.mMisses.Add(1)
        return nil, false
    }
    exp := e.expireAt
    val := e.val
    sh.mu.RUnlock()

    if exp != 0 && exp <= s.nowFn().UnixNano() {
        // lazy expiry
        sh.mu.Lock()
        if e2, ok2 := sh.m[key]; ok2 && e2.expireAt != 0 && e2.expireAt <= s.nowFn().UnixNano() {
            delete(sh.m, key)
            s.mExpired.Add(1)
        }
        sh.mu.Unlock()
        s.mMisses.Add(1)
        return nil, false
    }
    s.mHits.Add(1)
    out := make([]byte, len(val))
    copy(out, val)
    return out, true
}

// Exists reports whether key is present and unexpired.
func (s *Store) Exists(key string) bool {
    _, ok := s.Get(key)
    return ok
}

// Delete removes key, reporting whether it was present.
func (s *Store) Delete(key string) bool {
    sh := s.shardFor(key)
    sh.mu.Lock()
    _, ok := sh.m[key]
    if ok {
        delete(sh.m, key)
    }
    sh.mu.Unlock()
    return ok
}

// TTL returns the remaining lifetime. ok=false when the key is missing or
// expired; a zero duration with ok=true means no expiry is set.
func (s *Store) TTL(key string) (time.Duration, bool) {
    sh := s.shardFor(key)
    sh.mu.RLock()
    e, ok := sh.m[key]
    if !ok {
        sh.mu.RUnlock()
        return 0, false
    }
    exp := e.expireAt
    sh.mu.RUnlock()

    if exp == 0 {
        return 0, true
    }
    now := s.nowFn().UnixNano()
    if exp <= now {
        s.Delete(key)
        return 0, false
    }
    return time.Duration(exp - now), true
}

// Stats is a snapshot of store counters.
type Stats struct {
    Sets    uint64
    Hits    uint64
    Misses  uint64
    Expired uint64
}

// Metrics returns an instantaneous counter snapshot.
func (s *Store) Metrics() Stats {
    return Stats{
        Sets:    s.mSets.Load(),
        Hits:    s.mHits.Load(),
        Misses:  s.mMisses.Load(),
        Expired: s.mExpired.Load(),
    }
}

// ======== expiry queue ========

type expItem struct {
    when int64
    key  string
}

type expQueue struct {
    sync.Mutex
    cond  *sync.Cond
    items []*expItem
}

func (q *expQueue) Len() int           { return len(q.items) }
func (q *expQueue) Less(i, j int) bool { return q.items[i].when < q.items[j].when }
func (q *expQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *expQueue) Push(x any)         { q.items = append(q.items, x.(*expItem)) }
func (q *expQueue) Pop() any           { old := q.items; n := len(old); it := old[n-1]; old[n-1] = nil; q.items = old[:n-1]; return it }

func (s *Store) enqueueExpire(key string, when int64) {
    s.expq.Lock()
    if s.expq.cond == nil {
        s.expq.cond = sync.NewCond(s.expq)
    }
    heap.Push(s.expq, &expItem{key: key, when: when})
    s.expq.cond.Broadcast()
    s.expq.Unlock()
}

func (s *Store) expirer() {
    defer s.wg.Done()
    for {
        s.expq.Lock()
        for s.expq.Len() == 0 {
            if s.expq.cond == nil {
                s.expq.cond = sync.NewCond(s.expq)
            }
            if s.isClosed() {
                s.expq.Unlock()
                return
            }
            s.expq.cond.Wait()
            if s.isClosed() {
                s.expq.Unlock()
                return
            }
        }
        it := s.expq.items[0]
        now := s.nowFn().UnixNano()
        if it.when > now {
            // sleep until the nearest deadline or shutdown
            d := time.Duration(it.when - now)
            timer := time.NewTimer(d)
            s.expq.Unlock()

            select {
            case <-timer.C:
            case <-s.closeCh:
                timer.Stop()
                return
            }
            continue
        }
        heap.Pop(s.expq)
        s.expq.Unlock()

        // The key may have been overwritten with a later deadline; re-check.
        sh := s.shardFor(it.key)
        nowN := s.nowFn().UnixNano()
        sh.mu.Lock()
        if e := sh.m[it.key]; e != nil && e.expireAt != 0 && e.expireAt <= nowN {
            delete(sh.m, it.key)
            s.mExpired.Add(1)
        }
        sh.mu.Unlock()
    }
}

func (s *Store) isClosed() bool {
    select {
    case <-s.closeCh:
        return true
    default:
        return false
    }
}
