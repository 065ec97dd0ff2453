// Package codec provides the serialization codecs used for broker envelope
// payloads and persisted artifacts.
package codec

import "fmt"

// Codec defines a simple interface for marshaling typed messages.
// Implementations should be deterministic and safe for cross-process exchange.
type Codec interface {
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

// Registry maps content type aliases to codecs.
type Registry struct{ byType map[string]Codec }

// NewRegistry constructs a registry preloaded with the built-in codecs.
func NewRegistry() *Registry {
    r := &Registry{byType: make(map[string]Codec)}
    r.Register(JSON())
    if c, err := CBOR(); err == nil {
        r.Register(c)
    }
    return r
}

// Register adds a codec.
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// ForName resolves a short config name ("json", "cbor") to a codec.
func ForName(name string) (Codec, error) {
    switch name {
    case "", "json":
        return JSON(), nil
    case "cbor":
        return CBOR()
    default:
        return nil, fmt.Errorf("unknown codec: %q", name)
    }
}
