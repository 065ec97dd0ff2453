// Package blob provides the object stores behind the BlobStore contract.
// Objects are addressed as store://bucket/key URIs.
package blob

import (
    "fmt"
    "strings"
)

// Scheme is the URI scheme understood by the stores in this package.
const Scheme = "store"

// ParseURI splits store://bucket/key into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
    prefix := Scheme + "://"
    if !strings.HasPrefix(uri, prefix) {
        return "", "", fmt.Errorf("unsupported blob uri: %q", uri)
    }
    rest := uri[len(prefix):]
    i := strings.IndexByte(rest, '/')
    if i <= 0 {
        // bucket-only URI; key supplied by the caller
        return rest, "", nil
    }
    return rest[:i], rest[i+1:], nil
}

// JoinURI builds store://bucket/key.
func JoinURI(bucket, key string) string {
    return fmt.Sprintf("%s://%s/%s", Scheme, bucket, strings.TrimPrefix(key, "/"))
}
