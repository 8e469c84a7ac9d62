// Package limiter implements fixed window rate limiting over a pluggable
// counter storage.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRule is returned by ParseRule for malformed rules
var ErrInvalidRule = errors.New("invalid rate limit rule")

// Rule allows Limit hits per Window
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) String() string {
	return fmt.Sprintf("%d per %s", r.Limit, r.Window)
}

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRule parses rules such as "5/minute", "10 per hour" or "100/day".
func ParseRule(s string) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var count, unit string
	if i := strings.Index(s, "/"); i >= 0 {
		count, unit = s[:i], s[i+1:]
	} else if i := strings.Index(s, " per "); i >= 0 {
		count, unit = s[:i], s[i+len(" per "):]
	} else {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}

	limit, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || limit <= 0 {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}
	unit = strings.TrimSuffix(strings.TrimSpace(unit), "s")
	window, ok := units[unit]
	if !ok {
		return Rule{}, fmt.Errorf("%w: unknown unit in %q", ErrInvalidRule, s)
	}
	return Rule{Limit: limit, Window: window}, nil
}

// Storage keeps the per key counters. Incr adds one hit to the key's current
// window, starting a new window of the given length when none is open, and
// returns the hit count together with the time left in the window.
type Storage interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Result of a single hit
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
}

// Limiter applies one Rule to any number of keys
type Limiter struct {
	storage Storage
	rule    Rule
	prefix  string
}

// New creates a Limiter. prefix is prepended to every key, e.g. "login:".
func New(storage Storage, rule Rule, prefix string) *Limiter {
	return &Limiter{storage: storage, rule: rule, prefix: prefix}
}

// Rule returns the rule the limiter enforces
func (l *Limiter) Rule() Rule {
	return l.rule
}

// Hit records an attempt for key and reports whether it is within the limit.
// Rejected attempts are counted too.
func (l *Limiter) Hit(ctx context.Context, key string) (Result, error) {
	count, ttl, err := l.storage.Incr(ctx, l.prefix+key, l.rule.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit storage: %w", err)
	}

	remaining := l.rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= int64(l.rule.Limit),
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}

// NewStorage selects a storage from a uri: "memory://" or a redis url.
func NewStorage(uri string) (Storage, error) {
	switch {
	case uri == "" || strings.HasPrefix(uri, "memory://"):
		return NewMemoryStorage(), nil
	case strings.HasPrefix(uri, "redis://"), strings.HasPrefix(uri, "rediss://"):
		return NewRedisStorageFromURL(uri)
	default:
		return nil, fmt.Errorf("unsupported rate limit storage %q", uri)
	}
}
