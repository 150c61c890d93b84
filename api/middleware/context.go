package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/docroute/docroute-backend/pkg/auth"
)

type contextKey string

const (
	ctxPrincipal contextKey = "principal"
	ctxClientIP  contextKey = "client_ip"
)

// PrincipalFromContext returns the authenticated caller, or false when the
// request never passed the auth middleware.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	if ctx == nil {
		return auth.Principal{}, false
	}
	if p, ok := ctx.Value(ctxPrincipal).(auth.Principal); ok {
		return p, true
	}
	return auth.Principal{}, false
}

// WithPrincipal injects the caller identity into the context.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// ClientIPFromContext returns the request's originating IP when known.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

func withClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIP, ip)
}

// clientIP resolves the caller address, preferring the first hop recorded by
// the load balancer.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
