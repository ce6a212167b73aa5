// Package cache stores rendered PDFs keyed by the bytes that produced them,
// so resubmitting an identical document skips the engine entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Sentinel errors for cache backends.
var (
	ErrInvalidURL = errors.New("invalid cache URL")
	ErrBackend    = errors.New("cache backend error")
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "office2pdf:pdf:"

// Cache is a byte store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key derives the cache key for a document of the given format.
// The format takes part in the hash: the same bytes declared as a
// different format select a different import filter. Options name
// anything else that changes the rendered output, such as a watermark.
func Key(format string, data []byte, options ...string) string {
	h := sha256.New()
	h.Write([]byte(format))
	h.Write([]byte{0})
	for _, opt := range options {
		h.Write([]byte(strconv.Itoa(len(opt)) + ":" + opt))
	}
	h.Write([]byte{0})
	h.Write(data)
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}
