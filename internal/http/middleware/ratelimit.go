package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	apierrors "github.com/pribylovaa/go-starwars-api/internal/errors"
	"github.com/pribylovaa/go-starwars-api/internal/metrics"
	logctx "github.com/pribylovaa/go-starwars-api/internal/pkg/log"
)

// Limiter решает, допустим ли ещё один запрос по ключу.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit ограничивает частоту запросов по ключу keyFn(r).
// nil-лимитер делает мидлвар no-op; ошибка лимитера не блокирует запрос (fail-open).
func RateLimit(name string, l Limiter, keyFn func(*http.Request) string, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context(), keyFn(r))
			if err != nil {
				logctx.From(r.Context()).Warn("rate_limit_unavailable",
					slog.String("limiter", name),
					slog.String("err", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				m.RateLimited(name)
				apierrors.WriteError(w, r, apierrors.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP возвращает IP клиента из RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
