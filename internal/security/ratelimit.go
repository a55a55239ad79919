package security

import (
	"sync"
	"time"

	"safe-apple-bridge/internal/config"
)

// Class identifies a rate-limited operation class.
type Class string

const (
	ClassMessages Class = "messages"
	ClassEmails   Class = "emails"
	ClassSearch   Class = "search"
	ClassWrite    Class = "write"
	ClassGlobal   Class = "global"
)

// windowSize is fixed for all classes.
const windowSize = 60 * time.Second

type rateEntry struct {
	count   int
	resetAt time.Time
}

// Limiter is a keyed fixed-window counter. It is a coarse window, not a
// sliding log: a burst straddling a window boundary can admit up to double
// the nominal rate. Accepted trade-off for O(1) memory and O(1) checks.
type Limiter struct {
	mu      sync.Mutex
	max     int
	entries map[string]*rateEntry
	now     func() time.Time
}

// NewLimiter creates a limiter allowing max requests per minute per key.
func NewLimiter(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{
		max:     max,
		entries: make(map[string]*rateEntry),
		now:     time.Now,
	}
}

// Check reports whether another request under key is allowed right now.
// A denial does not mutate state.
func (l *Limiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		l.entries[key] = &rateEntry{count: 1, resetAt: now.Add(windowSize)}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Reset clears one key's entry. Used by tests, not by production call paths.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Limiters bundles the per-class limiters with the shared global one.
type Limiters struct {
	byClass map[Class]*Limiter
	global  *Limiter
}

// NewLimiters builds all limiters from the configured per-class maximums.
func NewLimiters(limits config.RateLimits) *Limiters {
	return &Limiters{
		byClass: map[Class]*Limiter{
			ClassMessages: NewLimiter(limits.Messages),
			ClassEmails:   NewLimiter(limits.Emails),
			ClassSearch:   NewLimiter(limits.Search),
			ClassWrite:    NewLimiter(limits.Write),
		},
		global: NewLimiter(limits.Global),
	}
}

// Allow checks the class limiter first, then the global one. Per-class
// exhaustion short-circuits before the shared global counter is touched.
// All classes draw from the one global window.
func (ls *Limiters) Allow(class Class) bool {
	if l, ok := ls.byClass[class]; ok {
		if !l.Check(string(class)) {
			return false
		}
	}
	return ls.global.Check(string(ClassGlobal))
}

// Class returns the limiter for one class, or nil.
func (ls *Limiters) Class(class Class) *Limiter {
	if class == ClassGlobal {
		return ls.global
	}
	return ls.byClass[class]
}
