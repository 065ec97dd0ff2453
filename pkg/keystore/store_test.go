package keystore

import (
    "fmt"
    "sync"
    "sync/atomic"
    "testing"
    "time"
)

func TestSetGet(t *testing.T) {
    s := New(Options{})
    defer s.Close()

    if created := s.Set("k1", []byte("abc"), 0); !created {
        t.Fatalf("expected created=true on first Set")
    }
    v, ok := s.Get("k1")
    if !ok || string(v) != "abc" {
        t.Fatalf("Get mismatch: ok=%v v=%q", ok, v)
    }
    // mutating the returned copy must not affect the store
    v[0] = 'X'
    v2, ok := s.Get("k1")
    if !ok || string(v2) != "abc" {
        t.Fatalf("Get after modify copy mismatch: ok=%v v=%q", ok, v2)
    }
    if created := s.Set("k1", []byte("def"), 0); created {
        t.Fatalf("expected created=false on overwrite")
    }
}

func TestSetIfAbsent(t *testing.T) {
    s := New(Options{})
    defer s.Close()

    if !s.SetIfAbsent("k", []byte("1"), 0) {
        t.Fatalf("expected first SetIfAbsent to win")
    }
    if s.SetIfAbsent("k", []byte("2"), 0) {
        t.Fatalf("expected second SetIfAbsent to lose")
    }
    v, _ := s.Get("k")
    if string(v) != "1" {
        t.Fatalf("value overwritten: %q", v)
    }
}

func TestSetIfAbsentAfterExpiry(t *testing.T) {
    s := New(Options{})
    defer s.Close()

    s.SetIfAbsent("k", []byte("1"), 30*time.Millisecond)
    time.Sleep(80 * time.Millisecond)
    if !s.SetIfAbsent("k", []byte("2"), 0) {
        t.Fatalf("expected SetIfAbsent to win after expiry")
    }
}

func TestExpireTTL(t *testing.T) {
    s := New(Options{})
    defer s.Close()

    s.Set("k3", []byte("v"), 50*time.Millisecond)
    if !s.Exists("k3") {
        t.Fatalf("expected key present before TTL")
    }
    if d, ok := s.TTL("k3"); !ok || d <= 0 {
        t.Fatalf("expected positive TTL, got %v ok=%v", d, ok)
    }
    time.Sleep(120 * time.Millisecond)
    if s.Exists("k3") {
        t.Fatalf("expected key expired")
    }
    if _, ok := s.TTL("k3"); ok {
        t.Fatalf("expected TTL to report missing after expiry")
    }
    stats := s.Metrics()
    if stats.Expired == 0 {
        t.Fatalf("expected Expired > 0, got %v", stats.Expired)
    }
}

func TestConcurrentSetIfAbsent(t *testing.T) {
    s := New(Options{Shards: 8})
    defer s.Close()

    const workers = 16
    var wins atomic.Int32
    var wg sync.WaitGroup
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            if s.SetIfAbsent("task-1", []byte(fmt.Sprintf("w%d", n)), 0) {
                wins.Add(1)
            }
        }(i)
    }
    wg.Wait()
    if got := wins.Load(); got != 1 {
        t.Fatalf("expected exactly one winner, got %d", got)
    }
}
