package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-starwars-api/internal/http/handlers"
	"github.com/pribylovaa/go-starwars-api/internal/http/middleware"
	"github.com/pribylovaa/go-starwars-api/internal/metrics"
	"github.com/pribylovaa/go-starwars-api/internal/models"
)

// Route — запись таблицы маршрутов: метод, шаблон chi, хендлер и политика гейта.
// Маршрут без явной политики не существует: Policy обязательна для каждой записи.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	Policy  middleware.Policy
	// Limited — маршрут проходит через лимитер попыток входа.
	Limited bool
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger        *slog.Logger
	Timeout       time.Duration
	Verifier      middleware.Verifier
	RefreshCookie string
	Metrics       *metrics.Metrics
	// LoginLimiter — лимитер для маршрутов с Limited; nil отключает ограничение.
	LoginLimiter middleware.Limiter
}

var (
	public    = middleware.Policy{Public: true}
	bearer    = middleware.Policy{Source: middleware.SourceBearer}
	adminOnly = middleware.Policy{Source: middleware.SourceBearer, Roles: []models.Role{models.RoleAdmin}}
	refresh   = middleware.Policy{Source: middleware.SourceRefreshCookie}
)

// Routes — единая таблица REST-эндпойнтов.
func Routes(h *handlers.Handlers) []Route {
	return []Route{
		// auth
		{Method: http.MethodPost, Pattern: "/auth/login", Handler: h.LoginUser, Policy: public, Limited: true},
		{Method: http.MethodPost, Pattern: "/auth/logout", Handler: h.LogoutUser, Policy: bearer},
		{Method: http.MethodPost, Pattern: "/auth/register", Handler: h.RegisterUser, Policy: public},
		{Method: http.MethodPost, Pattern: "/auth/refresh", Handler: h.RefreshToken, Policy: refresh},
		{Method: http.MethodGet, Pattern: "/auth/me", Handler: h.Me, Policy: bearer},

		// users
		{Method: http.MethodGet, Pattern: "/users", Handler: h.ListUsers, Policy: adminOnly},
		{Method: http.MethodGet, Pattern: "/users/{id}", Handler: h.GetUserByID, Policy: adminOnly},
	}
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	registerRoutes(root, Routes(h), opts)
	return root
}

// registerRoutes вешает на каждый маршрут его лимитер и гейт.
func registerRoutes(r chi.Router, routes []Route, opts Options) {
	for _, rt := range routes {
		mws := []middleware.Middleware{}
		if rt.Limited {
			mws = append(mws, middleware.RateLimit("login", opts.LoginLimiter, loginKey, opts.Metrics))
		}
		mws = append(mws, middleware.Gate(rt.Policy, opts.Verifier, opts.RefreshCookie, opts.Metrics))

		r.Method(rt.Method, rt.Pattern, middleware.Chain(rt.Handler, mws...))
	}
}

func loginKey(r *http.Request) string {
	return "login:" + middleware.ClientIP(r)
}
