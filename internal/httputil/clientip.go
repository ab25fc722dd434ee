// Package httputil holds small helpers shared by the HTTP handlers.
package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address the request came from. With trustProxy set,
// the leftmost X-Forwarded-For entry wins, then X-Real-IP, and only then
// RemoteAddr. Header values that are not IP addresses are skipped so a
// client cannot inject arbitrary strings into logs.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip, ok := firstIP(r.Header.Get("X-Forwarded-For")); ok {
			return ip
		}
		if ip, ok := firstIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstIP(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	first, _, _ := strings.Cut(header, ",")
	addr, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return "", false
	}
	return addr.String(), true
}
