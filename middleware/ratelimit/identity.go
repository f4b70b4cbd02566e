package ratelimit

import (
	"context"
	"net/http"
	"strings"
)

// DefaultTrustedHeader é o header do proxy de borda que carrega o IP real.
const DefaultTrustedHeader = "CF-Connecting-IP"

// UnknownClient é a identidade usada quando nenhum header ajuda.
const UnknownClient = "unknown"

type KeyFunc func(r *http.Request) string

// ClientKeyFunc resolve a identidade em ordem estrita: header confiável do proxy,
// primeiro item do X-Forwarded-For, X-Real-IP e por fim "unknown".
//
// Nunca retorna string vazia. RemoteAddr é ignorado de propósito: atrás do proxy
// ele é sempre o endereço do próprio proxy.
func ClientKeyFunc(trustedHeader string) KeyFunc {
	if trustedHeader == "" {
		trustedHeader = DefaultTrustedHeader
	}
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(trustedHeader)); v != "" {
			return v
		}

		// pega o primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
			return v
		}
		return UnknownClient
	}
}

type ctxKey struct{}

func withClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// ClientKeyFromContext devolve a identidade gravada pelo Middleware.
func ClientKeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok
}
