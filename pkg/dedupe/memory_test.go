package dedupe

import (
    "context"
    "testing"
    "time"
)

func TestMemoryGuardLifecycle(t *testing.T) {
    g := NewMemoryGuard()
    defer g.Close()
    ctx := context.Background()

    seen, err := g.Seen(ctx, "t1")
    if err != nil {
        t.Fatalf("seen: %v", err)
    }
    if seen {
        t.Fatalf("fresh id must not be seen")
    }

    created, err := g.MarkDone(ctx, "t1")
    if err != nil {
        t.Fatalf("mark: %v", err)
    }
    if !created {
        t.Fatalf("first mark must create the record")
    }

    seen, err = g.Seen(ctx, "t1")
    if err != nil {
        t.Fatalf("seen: %v", err)
    }
    if !seen {
        t.Fatalf("marked id must be seen")
    }

    created, err = g.MarkDone(ctx, "t1")
    if err != nil {
        t.Fatalf("mark: %v", err)
    }
    if created {
        t.Fatalf("second mark must not report creation")
    }
}

func TestMemoryGuardTTLExpiry(t *testing.T) {
    g := NewMemoryGuard(WithTTL(30 * time.Millisecond))
    defer g.Close()
    ctx := context.Background()

    if _, err := g.MarkDone(ctx, "t1"); err != nil {
        t.Fatalf("mark: %v", err)
    }
    time.Sleep(80 * time.Millisecond)

    seen, err := g.Seen(ctx, "t1")
    if err != nil {
        t.Fatalf("seen: %v", err)
    }
    if seen {
        t.Fatalf("record must expire after the ttl")
    }
}
