package handlers

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/metrics"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

var errRateLimited = apperr.Sentinel(apperr.TooManyRequests, "too many requests, slow down")

// throttle charges one request against scope for the caller's address.
func throttle(limiter RateLimiter, r *http.Request, scope string, trusted []netip.Prefix) error {
	if limiter == nil || limiter.Allow(scope+":"+clientIP(r, trusted)) {
		return nil
	}
	metrics.APIRateLimitHits.WithLabelValues(scope).Inc()
	return errRateLimited
}

// clientIP returns the connection's remote address unless that peer is a
// trusted proxy. Behind one, X-Forwarded-For is walked right to left and the
// first untrusted hop wins; X-Real-IP is the fallback.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := remoteHost(r.RemoteAddr)
	addr, err := netip.ParseAddr(remote)
	if err != nil || !isTrustedProxy(addr, trusted) {
		return remote
	}

	if hops := forwardedHops(r.Header); len(hops) > 0 {
		client := remote
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(hops[i])
			if err != nil {
				break
			}
			client = hop.Unmap().String()
			if !isTrustedProxy(hop, trusted) {
				return client
			}
		}
		return client
	}

	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return ip.Unmap().String()
	}
	return remote
}

func remoteHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	return remoteAddr
}

// forwardedHops flattens every X-Forwarded-For header in arrival order.
func forwardedHops(h http.Header) []string {
	var hops []string
	for _, value := range h.Values("X-Forwarded-For") {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	return hops
}

func isTrustedProxy(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
