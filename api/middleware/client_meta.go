package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ClientMeta records the caller's address and user agent so handlers can
// attribute audit entries to the originating client.
func ClientMeta() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if ip := clientIP(r); ip != "" {
				ctx = context.WithValue(ctx, ctxIPAddress, ip)
			}
			if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
				ctx = context.WithValue(ctx, ctxUserAgent, ua)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
