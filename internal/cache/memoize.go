package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Args are the inputs of a memoized computation.
// Positional order is significant; Named is keyed and order-independent.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Positional builds Args from positional values only.
func Positional(values ...any) Args {
	return Args{Positional: values}
}

// Named builds Args from keyword values only.
func Named(values map[string]any) Args {
	return Args{Named: values}
}

// Func is a computation that can be memoized.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Policy controls how memoized results are stored.
type Policy struct {
	TTL  time.Duration // <= 0 selects the cache default
	Tags []string
}

// keyPayload is the canonical form hashed by DeriveKey. encoding/json
// writes map keys sorted, which normalizes Named.
type keyPayload struct {
	Fn     string         `json:"fn"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// DeriveKey returns a stable key for name called with args.
// It fails when an argument cannot be encoded as JSON.
func DeriveKey(name string, args Args) (string, error) {
	payload := keyPayload{
		Fn:     name,
		Args:   args.Positional,
		Kwargs: args.Named,
	}
	if payload.Args == nil {
		payload.Args = []any{}
	}
	if payload.Kwargs == nil {
		payload.Kwargs = map[string]any{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode memoize key for %s: %w", name, err)
	}

	sum := sha256.Sum256(data)
	return name + ":" + hex.EncodeToString(sum[:]), nil
}

// Memoize wraps fn so results are served from c when present.
//
// On a miss fn runs once per key even under concurrent callers; its error is
// returned unchanged and nothing is cached. The shared run is detached from
// caller cancellation, and each caller stops waiting when its own ctx is done.
// When c is Versioned, a result computed while one of policy.Tags was
// invalidated is returned but not stored, and later callers start a fresh run.
//
// A stored value whose dynamic type is not T is deleted and recomputed. Its
// lookup has already been counted as a hit in the cache stats.
func Memoize[T any](c Store, name string, policy Policy, fn Func[T]) Func[T] {
	var group singleflight.Group
	versioned, _ := c.(Versioned)

	return func(ctx context.Context, args Args) (T, error) {
		var zero T

		key, err := DeriveKey(name, args)
		if err != nil {
			return zero, err
		}

		if cached, ok := c.Get(key); ok {
			if value, ok := cached.(T); ok {
				return value, nil
			}
			if cached == nil {
				return zero, nil
			}
			c.Delete(key)
		}

		flight := key
		var gen uint64
		if versioned != nil {
			gen = versioned.Generation(policy.Tags...)
			flight = key + "@" + strconv.FormatUint(gen, 10)
		}

		ch := group.DoChan(flight, func() (any, error) {
			value, err := fn(context.WithoutCancel(ctx), args)
			if err != nil {
				return nil, err
			}
			if versioned != nil {
				versioned.SetAt(gen, key, value, policy.TTL, policy.Tags...)
			} else {
				c.Set(key, value, policy.TTL, policy.Tags...)
			}
			return value, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return zero, res.Err
			}
			value, _ := res.Val.(T)
			return value, nil
		}
	}
}
