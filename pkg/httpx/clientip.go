package httpx

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIP is the sentinel returned when no client address is resolvable.
const UnknownIP = "unknown"

// ClientIPResolver resolves the originating client address of a request.
//
// When the request arrives from a configured trusted proxy, the leftmost
// X-Forwarded-For entry is authoritative. Otherwise forwarding headers are
// consulted in a fixed priority order as best-effort hints before falling
// back to the socket address.
type ClientIPResolver struct {
	TrustedProxies []string
}

// Resolve returns the normalized client IP or UnknownIP.
func (c *ClientIPResolver) Resolve(r *http.Request) string {
	peer := normalizeIP(r.RemoteAddr)

	if c.trusts(peer) {
		if ip := firstForwarded(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
	}

	// Fixed fallback priority for deployments without explicit proxy trust.
	for _, header := range []string{"X-Real-IP", "X-Forwarded-For", "CF-Connecting-IP"} {
		if ip := firstForwarded(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	if peer != "" {
		return peer
	}
	return UnknownIP
}

func (c *ClientIPResolver) trusts(peer string) bool {
	if peer == "" {
		return false
	}
	for _, proxy := range c.TrustedProxies {
		if normalizeIP(proxy) == peer {
			return true
		}
	}
	return false
}

// firstForwarded extracts and normalizes the first entry of a forwarding
// header value, returning "" if nothing parses as an IP.
func firstForwarded(header string) string {
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	return normalizeIP(first)
}

// normalizeIP strips port suffixes and IPv6 brackets, returning the
// canonical text form or "" for garbage.
func normalizeIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimPrefix(addr, "[")
	addr = strings.TrimSuffix(addr, "]")

	ip := net.ParseIP(addr)
	if ip == nil {
		return ""
	}
	return ip.String()
}
