package ratelimit

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	mu         sync.Mutex
	limiters   map[netip.Addr]*limiterEntry
	rate       rate.Limit
	burst      int
	idle       time.Duration
	maxEntries int
	trusted    []netip.Prefix
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewIPRateLimiter allows r requests per second with bursts of b per client.
// Buckets idle for longer than idle are dropped. Forwarding headers are only
// honoured from trustedProxies (CIDRs or single addresses); with none
// configured every peer is trusted.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration, trustedProxies []string) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters:   make(map[netip.Addr]*limiterEntry),
		rate:       r,
		burst:      b,
		idle:       idle,
		maxEntries: 10000,
		trusted:    parsePrefixes(trustedProxies),
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Close stops the background sweeper.
func (l *IPRateLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func parsePrefixes(specs []string) []netip.Prefix {
	var out []netip.Prefix
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if p, err := netip.ParsePrefix(spec); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(spec); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

// Allow reports whether a request from addr may proceed now. When it may
// not, wait is how long until the next token.
func (l *IPRateLimiter) Allow(addr netip.Addr) (ok bool, wait time.Duration) {
	l.mu.Lock()
	now := l.now()
	e, exists := l.limiters[addr]
	if !exists {
		if len(l.limiters) >= l.maxEntries {
			l.evictOldestLocked()
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[addr] = e
	}
	e.lastAccess = now
	l.mu.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

func (l *IPRateLimiter) evictOldestLocked() {
	var oldest netip.Addr
	var oldestAt time.Time
	for a, e := range l.limiters {
		if !oldest.IsValid() || e.lastAccess.Before(oldestAt) {
			oldest, oldestAt = a, e.lastAccess
		}
	}
	if oldest.IsValid() {
		delete(l.limiters, oldest)
	}
}

func (l *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *IPRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	for a, e := range l.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(l.limiters, a)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (l *IPRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ok, wait := l.Allow(l.ClientAddr(r)); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr resolves the originating client address of r.
func (l *IPRateLimiter) ClientAddr(r *http.Request) netip.Addr {
	remote := peerAddr(r.RemoteAddr)
	if len(l.trusted) > 0 && !l.isTrusted(remote) {
		return remote
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return a.Unmap()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if a, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return a.Unmap()
		}
	}
	return remote
}

func (l *IPRateLimiter) isTrusted(a netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func peerAddr(remote string) netip.Addr {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap()
	}
	if a, err := netip.ParseAddr(remote); err == nil {
		return a.Unmap()
	}
	return netip.Addr{}
}
