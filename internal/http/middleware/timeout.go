package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Timeout ограничивает обработку запроса сервисным дедлайном d (timeouts.service).
// Более ранний дедлайн родителя сохраняется: context.WithTimeout его не продлевает.
// Если дедлайн истёк до возврата хендлера, запись "http" получает timed_out=true.
// d <= 0 отключает мидлвар.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				requestInfoFrom(ctx).markTimedOut()
			}
		})
	}
}
