package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pribylovaa/go-starwars-api/internal/config"
	"github.com/pribylovaa/go-starwars-api/internal/http/handlers"
	"github.com/pribylovaa/go-starwars-api/internal/metrics"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/security"
	"github.com/pribylovaa/go-starwars-api/internal/service"
	"github.com/pribylovaa/go-starwars-api/internal/storage/sqlite"
	"github.com/pribylovaa/go-starwars-api/internal/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail = "admin@starwars.dev"
	adminPass  = "admin123"
)

// denyAfter — лимитер, пропускающий n запросов.
type denyAfter struct{ n int }

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	d.n--
	return d.n >= 0, nil
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	cookie  config.CookieConfig
}

func newTestAPI(t *testing.T, limiter *denyAfter) *testAPI {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)

	auth := config.AuthConfig{
		AccessTokenSecret:  "router-access",
		AccessTokenTTL:     time.Minute,
		RefreshTokenSecret: "router-refresh",
		RefreshTokenTTL:    time.Hour,
		Issuer:             "starwars-api",
		Audience:           []string{"starwars-api"},
		StoreTimeout:       time.Second,
	}
	cookie := config.CookieConfig{Name: "refreshToken", Path: "/auth/refresh", Secure: true, SameSite: "strict"}

	svc := service.New(store, security.NewBcryptHasher(4), token.NewSigner(auth.Issuer, auth.Audience), auth)
	require.NoError(t, svc.EnsureAdmin(context.Background(), adminEmail, adminPass))

	opts := Options{
		Timeout:       5 * time.Second,
		Verifier:      svc,
		RefreshCookie: cookie.Name,
		Metrics:       metrics.New(prometheus.NewRegistry()),
	}
	if limiter != nil {
		opts.LoginLimiter = limiter
	}

	return &testAPI{
		t:       t,
		handler: NewRouter(handlers.New(svc, cookie, auth.RefreshTokenTTL), opts),
		cookie:  cookie,
	}
}

func (a *testAPI) do(method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	a.t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, m := range mutate {
		m(req)
	}

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func withBearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

// login возвращает access-токен и cookie с refresh-токеном.
func (a *testAPI) login(email, password string) (string, *http.Cookie) {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())

	var out models.AccessTokenResponse
	require.NoError(a.t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(a.t, out.AccessToken)

	cookies := rr.Result().Cookies()
	require.Len(a.t, cookies, 1)
	return out.AccessToken, cookies[0]
}

func (a *testAPI) register(email string) {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/auth/register",
		`{"email":"`+email+`","password":"padawan1","firstName":"Ahsoka","lastName":"Tano"}`)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRoutes_EveryRouteDeclaresPolicy(t *testing.T) {
	routes := Routes(handlers.New(nil, config.CookieConfig{}, time.Hour))
	require.NotEmpty(t, routes)

	seen := map[string]bool{}
	for _, rt := range routes {
		key := rt.Method + " " + rt.Pattern
		require.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true
		require.NotNil(t, rt.Handler, key)

		if rt.Limited {
			require.True(t, rt.Policy.Public, "only public routes are rate limited: %s", key)
		}
	}

	require.True(t, seen["POST /auth/login"])
	require.True(t, seen["POST /auth/refresh"])
}

func TestAPI_LoginRefreshLogout(t *testing.T) {
	api := newTestAPI(t, nil)
	api.register("ahsoka@jedi.org")

	access, refreshCookie := api.login("ahsoka@jedi.org", "padawan1")
	require.Equal(t, "refreshToken", refreshCookie.Name)
	require.True(t, refreshCookie.HttpOnly)

	// me по access-токену
	rr := api.do(http.MethodGet, "/auth/me", "", withBearer(access))
	require.Equal(t, http.StatusOK, rr.Code)
	var me models.TokenPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	require.Equal(t, "ahsoka@jedi.org", me.Email)
	require.Equal(t, models.RoleUser, me.Role)

	// refresh по cookie
	rr = api.do(http.MethodPost, "/auth/refresh", "", withCookie(refreshCookie))
	require.Equal(t, http.StatusOK, rr.Code)
	var out models.AccessTokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.AccessToken)

	rr = api.do(http.MethodGet, "/auth/me", "", withBearer(out.AccessToken))
	require.Equal(t, http.StatusOK, rr.Code)

	// logout
	rr = api.do(http.MethodPost, "/auth/logout", "", withBearer(access))
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
	require.Equal(t, refreshCookie.Path, cleared[0].Path)
}

func TestAPI_Refresh_RejectsWrongCredentials(t *testing.T) {
	api := newTestAPI(t, nil)
	access, _ := api.login(adminEmail, adminPass)

	rr := api.do(http.MethodPost, "/auth/refresh", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// access-токен в cookie не годится: другой секрет и тип
	rr = api.do(http.MethodPost, "/auth/refresh", "", withCookie(&http.Cookie{Name: "refreshToken", Value: access}))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(http.MethodPost, "/auth/refresh", "", withBearer(access))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_Login_BadCredentials(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, body := range []string{
		`{"email":"admin@starwars.dev","password":"wrong-pass"}`,
		`{"email":"nobody@starwars.dev","password":"admin123"}`,
	} {
		rr := api.do(http.MethodPost, "/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Equal(t, "invalid_credentials", errorCode(t, rr))
		require.Empty(t, rr.Result().Cookies())
	}
}

func TestAPI_Register_Duplicate(t *testing.T) {
	api := newTestAPI(t, nil)
	api.register("rex@clones.org")

	rr := api.do(http.MethodPost, "/auth/register",
		`{"email":"rex@clones.org","password":"padawan1","firstName":"Rex","lastName":"CT"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "already_exists", errorCode(t, rr))
}

func TestAPI_AdminRoutes(t *testing.T) {
	api := newTestAPI(t, nil)
	api.register("ahsoka@jedi.org")

	userAccess, _ := api.login("ahsoka@jedi.org", "padawan1")
	adminAccess, _ := api.login(adminEmail, adminPass)

	rr := api.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(http.MethodGet, "/users", "", withBearer(userAccess))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(http.MethodGet, "/users", "", withBearer(adminAccess))
	require.Equal(t, http.StatusOK, rr.Code)
	var users []models.PublicUser
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 2)
	require.NotContains(t, rr.Body.String(), "$2a$")

	rr = api.do(http.MethodGet, "/users?email=ahsoka@jedi.org", "", withBearer(adminAccess))
	require.Equal(t, http.StatusOK, rr.Code)
	users = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 1)

	rr = api.do(http.MethodGet, "/users/"+users[0].ID.String(), "", withBearer(adminAccess))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(http.MethodGet, "/users/"+users[0].ID.String(), "", withBearer(userAccess))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(http.MethodGet, "/users/not-a-uuid", "", withBearer(adminAccess))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_LoginRateLimited(t *testing.T) {
	api := newTestAPI(t, &denyAfter{n: 1})

	api.login(adminEmail, adminPass)

	rr := api.do(http.MethodPost, "/auth/login", `{"email":"admin@starwars.dev","password":"admin123"}`)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "resource_exhausted", errorCode(t, rr))

	// register лимитером не ограничен
	api.register("cody@clones.org")
}

func TestAPI_RequestIDAndNotFound(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(http.MethodGet, "/auth/me", "", func(r *http.Request) { r.Header.Set("X-Request-Id", "rid-1") })
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "rid-1", rr.Header().Get("X-Request-Id"))

	rr = api.do(http.MethodGet, "/films", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
