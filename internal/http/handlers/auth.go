package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-starwars-api/internal/errors"
	"github.com/pribylovaa/go-starwars-api/internal/http/middleware"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/service"
)

const logoutMessage = "Logout successful"

func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.refreshCookie(pair.RefreshToken, int(h.refreshTTL.Seconds())))
	writeJSON(w, http.StatusOK, models.AccessTokenResponse{AccessToken: pair.AccessToken})
}

// LogoutUser очищает cookie с refresh-токеном. Токены stateless и на сервере не отзываются.
func (h *Handlers) LogoutUser(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.refreshCookie("", -1))
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: logoutMessage})
}

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), service.RegisterInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// RefreshToken выпускает новый access-токен по payload, проверенному гейтом из cookie.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	tok, _, err := h.svc.RefreshToken(r.Context(), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AccessTokenResponse{AccessToken: tok})
}

// Me возвращает claims текущего субъекта.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// refreshCookie строит cookie с refresh-токеном. Выставление и очистка
// используют одни и те же атрибуты, иначе браузер не сотрёт cookie.
func (h *Handlers) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: h.cookie.SameSiteMode(),
	}
}
