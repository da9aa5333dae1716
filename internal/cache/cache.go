package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"librarian/internal/config"
)

// NoExpiry disables expiration when passed as a TTL.
const NoExpiry time.Duration = 0

// Separator joins the prefix and the remainder of a cache key.
const Separator = ":"

// Backend is the pluggable cache surface. Implementations are safe for
// concurrent use. Operations never fail: remote backend errors degrade to
// cache misses.
type Backend interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
	Invalidate(prefix string)
}

// New constructs the backend selected by configuration.
func New(cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return NewInMemory(), nil
	}
	switch cfg.Cache.Backend {
	case "noop", "":
		return NoOp{}, nil
	case "in-memory":
		return NewInMemory(), nil
	case "scored-in-memory":
		return NewScoredInMemory(cfg.Cache.MaxEntries), nil
	case "size-scored-in-memory":
		return NewSizeScoredInMemory(cfg.Cache.MaxBytes), nil
	case "memcached":
		return NewMemcached(cfg.Cache.Servers...), nil
	default:
		return nil, fmt.Errorf("cache: unsupported backend %q", cfg.Cache.Backend)
	}
}

// Key derives a cache key from a prefix, a function name, and its arguments.
// The argument digest keeps keys bounded regardless of argument size.
func Key(prefix, name string, args ...any) string {
	hasher := md5.New()
	fmt.Fprint(hasher, name)
	for _, arg := range args {
		fmt.Fprintf(hasher, "|%v", arg)
	}
	return prefix + Separator + hex.EncodeToString(hasher.Sum(nil))
}

// KeyPrefix returns the prefix portion of a cache key.
func KeyPrefix(key string) string {
	if idx := strings.Index(key, Separator); idx >= 0 {
		return key[:idx]
	}
	return key
}

// Cached wraps fn so its JSON-serializable results are memoized under prefix
// for ttl. Distinct argument lists map to distinct keys. Both the first and
// subsequent calls return the JSON-decoded form so callers observe identical
// values regardless of cache state.
func Cached(backend Backend, prefix, name string, ttl time.Duration, fn func(args ...any) (any, error)) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		key := Key(prefix, name, args...)
		if data, ok := backend.Get(key); ok {
			var value any
			if err := json.Unmarshal(data, &value); err == nil {
				return value, nil
			}
			backend.Delete(key)
		}

		result, err := fn(args...)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("cache encode: %w", err)
		}
		backend.Set(key, data, ttl)

		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("cache decode: %w", err)
		}
		return value, nil
	}
}
