package dedupe

import (
    "context"

    "github.com/burnsgregm/TbD-V6/pkg/keystore"
)

// MemoryGuard is a process-local guard backed by the keystore. It is
// sufficient for a single worker instance; multi-instance deployments need
// the RedisGuard so dedupe survives restarts and spans workers.
type MemoryGuard struct {
    store *keystore.Store
    opts  options
}

// NewMemoryGuard builds a guard over a fresh keystore.
func NewMemoryGuard(opt ...Option) *MemoryGuard {
    g := &MemoryGuard{store: keystore.New(keystore.Options{})}
    for _, o := range opt {
        o(&g.opts)
    }
    return g
}

// Close releases the underlying store.
func (g *MemoryGuard) Close() { g.store.Close() }

func (g *MemoryGuard) Seen(_ context.Context, taskID string) (bool, error) {
    return g.store.Exists(taskID), nil
}

func (g *MemoryGuard) MarkDone(_ context.Context, taskID string) (bool, error) {
    return g.store.SetIfAbsent(taskID, []byte{1}, g.opts.ttl), nil
}
