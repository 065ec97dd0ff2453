package blob

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
)

// FSStore maps store://bucket/key onto root/bucket/key on the local
// filesystem. Puts overwrite, which keeps re-uploads after a retry
// idempotent.
type FSStore struct{ root string }

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
    if err := os.MkdirAll(root, 0o755); err != nil {
        return nil, fmt.Errorf("blob root: %w", err)
    }
    return &FSStore{root: root}, nil
}

func (s *FSStore) path(uri string) (string, error) {
    bucket, key, err := ParseURI(uri)
    if err != nil {
        return "", err
    }
    if key == "" {
        return "", fmt.Errorf("blob uri missing key: %q", uri)
    }
    return filepath.Join(s.root, bucket, filepath.FromSlash(key)), nil
}

func (s *FSStore) Get(_ context.Context, uri string) ([]byte, error) {
    p, err := s.path(uri)
    if err != nil {
        return nil, err
    }
    b, err := os.ReadFile(p)
    if err != nil {
        return nil, fmt.Errorf("blob get %s: %w", uri, err)
    }
    return b, nil
}

func (s *FSStore) Put(_ context.Context, uri string, data []byte) error {
    p, err := s.path(uri)
    if err != nil {
        return err
    }
    if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
        return fmt.Errorf("blob put %s: %w", uri, err)
    }
    if err := os.WriteFile(p, data, 0o644); err != nil {
        return fmt.Errorf("blob put %s: %w", uri, err)
    }
    return nil
}
