package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/config"
	apierrors "github.com/pribylovaa/go-starwars-api/internal/errors"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/service"
)

// maxBodyBytes — предел размера тела запроса.
const maxBodyBytes = 1 << 20

// AuthService — операции сервиса, нужные хендлерам; реализуется service.Service.
type AuthService interface {
	LoginUser(ctx context.Context, email, password string) (*models.TokenPair, error)
	RegisterUser(ctx context.Context, in service.RegisterInput) (*models.PublicUser, error)
	RefreshToken(ctx context.Context, payload models.TokenPayload) (string, time.Time, error)
	ListUsers(ctx context.Context, email string) ([]*models.PublicUser, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.PublicUser, error)
}

// Handlers агрегирует зависимости REST-хендлеров.
type Handlers struct {
	svc        AuthService
	cookie     config.CookieConfig
	refreshTTL time.Duration
}

// New создаёт хендлеры. refreshTTL задаёт Max-Age cookie с refresh-токеном.
func New(svc AuthService, cookie config.CookieConfig, refreshTTL time.Duration) *Handlers {
	return &Handlers{svc: svc, cookie: cookie, refreshTTL: refreshTTL}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
// Любая ошибка разбора оборачивается в apierrors.ErrBadRequest.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", apierrors.ErrBadRequest)
	}

	return nil
}
