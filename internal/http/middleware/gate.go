package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	apierrors "github.com/pribylovaa/go-starwars-api/internal/errors"
	"github.com/pribylovaa/go-starwars-api/internal/metrics"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	logctx "github.com/pribylovaa/go-starwars-api/internal/pkg/log"
	"github.com/pribylovaa/go-starwars-api/internal/service"
)

// CredentialSource — откуда гейт берёт токен.
type CredentialSource int

const (
	// SourceBearer — заголовок Authorization: Bearer <access-token>.
	SourceBearer CredentialSource = iota
	// SourceRefreshCookie — только cookie с refresh-токеном (маршрут /auth/refresh).
	SourceRefreshCookie
)

func (s CredentialSource) String() string {
	switch s {
	case SourceBearer:
		return "bearer"
	case SourceRefreshCookie:
		return "refresh_cookie"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Policy — требования маршрута к вызывающему.
//   - Public — гейт пропускает запрос без проверок;
//   - Source — источник и вид токена;
//   - Roles — допустимые роли; пустой список — любой аутентифицированный субъект.
type Policy struct {
	Public bool
	Source CredentialSource
	Roles  []models.Role
}

// Allows сообщает, допускает ли политика роль.
func (p Policy) Allows(role models.Role) bool {
	return len(p.Roles) == 0 || slices.Contains(p.Roles, role)
}

// Verifier проверяет токены; реализуется service.Service.
type Verifier interface {
	VerifyAccessToken(tok string) (models.TokenPayload, error)
	VerifyRefreshToken(tok string) (models.TokenPayload, error)
}

// Gate — гейт авторизации маршрута. Порядок фиксирован:
// public → аутентификация (401) → авторизация по роли (403).
// При любой неоднозначности (нет заголовка, битый токен, чужой секрет) запрос отклоняется.
// Проверенный payload кладётся в контекст (см. PrincipalFrom), решение и субъект
// попадают в запись "http" мидлвара Logging.
func Gate(p Policy, v Verifier, refreshCookie string, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "http.middleware.Gate"

			info := requestInfoFrom(r.Context())

			if p.Public {
				info.setDecision(metrics.DecisionPublic, nil)
				m.GateDecision(metrics.DecisionPublic)
				next.ServeHTTP(w, r)
				return
			}

			payload, err := authenticate(r, p.Source, v, refreshCookie)
			if err != nil {
				logctx.From(r.Context()).Info("gate_unauthenticated",
					slog.String("op", op),
					slog.String("source", p.Source.String()),
					slog.String("err", err.Error()),
				)
				info.setDecision(metrics.DecisionUnauthenticated, nil)
				m.GateDecision(metrics.DecisionUnauthenticated)
				apierrors.WriteError(w, r, err)
				return
			}

			if !p.Allows(payload.Role) {
				logctx.From(r.Context()).Info("gate_forbidden",
					slog.String("op", op),
					slog.String("user_id", payload.SubjectID.String()),
					slog.String("role", payload.Role.String()),
				)
				info.setDecision(metrics.DecisionForbidden, &payload)
				m.GateDecision(metrics.DecisionForbidden)
				apierrors.WriteError(w, r, service.ErrForbidden)
				return
			}

			info.setDecision(metrics.DecisionAllowed, &payload)
			m.GateDecision(metrics.DecisionAllowed)

			ctx := context.WithValue(r.Context(), ctxPrincipal, payload)
			ctx = logctx.With(ctx, slog.String("user_id", payload.SubjectID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom возвращает payload, проверенный гейтом.
func PrincipalFrom(ctx context.Context) (models.TokenPayload, bool) {
	p, ok := ctx.Value(ctxPrincipal).(models.TokenPayload)
	return p, ok
}

// WithPrincipal кладёт payload в контекст (для тестов хендлеров).
func WithPrincipal(ctx context.Context, p models.TokenPayload) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

func authenticate(r *http.Request, src CredentialSource, v Verifier, refreshCookie string) (models.TokenPayload, error) {
	switch src {
	case SourceBearer:
		return v.VerifyAccessToken(bearerToken(r))
	case SourceRefreshCookie:
		c, err := r.Cookie(refreshCookie)
		if err != nil {
			return models.TokenPayload{}, service.ErrUnauthenticated
		}
		return v.VerifyRefreshToken(c.Value)
	default:
		return models.TokenPayload{}, service.ErrUnauthenticated
	}
}

// bearerToken извлекает токен из Authorization; схема сравнивается без учёта регистра.
// Пустая строка означает, что токена нет.
func bearerToken(r *http.Request) string {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(tok)
}
