package blob

import (
    "bytes"
    "context"
    "testing"
)

func TestParseURI(t *testing.T) {
    cases := []struct {
        uri    string
        bucket string
        key    string
        ok     bool
    }{
        {"store://out/t1/pathway.json", "out", "t1/pathway.json", true},
        {"store://out", "out", "", true},
        {"s3://out/key", "", "", false},
        {"out/key", "", "", false},
    }
    for _, tc := range cases {
        bucket, key, err := ParseURI(tc.uri)
        if tc.ok != (err == nil) {
            t.Fatalf("%q: err %v", tc.uri, err)
        }
        if bucket != tc.bucket || key != tc.key {
            t.Fatalf("%q: got %q %q, want %q %q", tc.uri, bucket, key, tc.bucket, tc.key)
        }
    }
}

func TestJoinURI(t *testing.T) {
    if got := JoinURI("out", "t1/pathway.json"); got != "store://out/t1/pathway.json" {
        t.Fatalf("join: %q", got)
    }
    if got := JoinURI("out", "/t1/a"); got != "store://out/t1/a" {
        t.Fatalf("join with leading slash: %q", got)
    }
}

func TestFSStoreRoundTrip(t *testing.T) {
    s, err := NewFSStore(t.TempDir())
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    ctx := context.Background()
    uri := "store://bucket/deep/nested/obj.bin"
    data := []byte{1, 2, 3, 4}

    if err := s.Put(ctx, uri, data); err != nil {
        t.Fatalf("put: %v", err)
    }
    got, err := s.Get(ctx, uri)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if !bytes.Equal(got, data) {
        t.Fatalf("round trip mismatch: %v", got)
    }

    // Overwrite keeps the latest write.
    if err := s.Put(ctx, uri, []byte{9}); err != nil {
        t.Fatalf("overwrite: %v", err)
    }
    got, err = s.Get(ctx, uri)
    if err != nil {
        t.Fatalf("get after overwrite: %v", err)
    }
    if !bytes.Equal(got, []byte{9}) {
        t.Fatalf("overwrite mismatch: %v", got)
    }
}

func TestFSStoreMissingObject(t *testing.T) {
    s, err := NewFSStore(t.TempDir())
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    if _, err := s.Get(context.Background(), "store://bucket/absent"); err == nil {
        t.Fatalf("expected error for missing object")
    }
}

func TestMemStoreCountsPuts(t *testing.T) {
    s := NewMemStore()
    ctx := context.Background()
    if err := s.Put(ctx, "store://b/k", []byte("a")); err != nil {
        t.Fatalf("put: %v", err)
    }
    if err := s.Put(ctx, "store://b/k", []byte("b")); err != nil {
        t.Fatalf("put: %v", err)
    }
    if n := s.PutCount("store://b/k"); n != 2 {
        t.Fatalf("put count %d", n)
    }
    if s.Len() != 1 {
        t.Fatalf("len %d", s.Len())
    }
}
