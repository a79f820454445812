package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key for a claim searched against one evidence provider
func Key(provider, claim string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(claim), " "))
	hash := sha256.Sum256([]byte(provider + "\x00" + normalized))
	return "claimcheck:v1:" + provider + ":" + hex.EncodeToString(hash[:])
}
