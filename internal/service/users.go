package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/pkg/log"
	"github.com/pribylovaa/go-starwars-api/internal/pkg/redact"
	"github.com/pribylovaa/go-starwars-api/internal/storage"
)

// ListUsers возвращает публичные проекции пользователей; email — необязательный точный фильтр.
func (s *Service) ListUsers(ctx context.Context, email string) ([]*models.PublicUser, error) {
	const op = "service.users.ListUsers"

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	users, err := s.users.ListUsers(ctx, storage.UserFilter{Email: strings.TrimSpace(email)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	return out, nil
}

// UserByID возвращает публичную проекцию пользователя.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.PublicUser, error) {
	const op = "service.users.UserByID"

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u.Public(), nil
}

// EnsureAdmin создаёт учётную запись ADMIN, если пользователя с таким email ещё нет.
// Существующая запись не изменяется, даже если её роль не ADMIN.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	const op = "service.users.EnsureAdmin"

	lg := log.From(ctx)

	in, err := validateRegister(RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Admin",
		LastName:  "Admin",
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.createUser(ctx, in, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			lg.Info("admin_exists",
				slog.String("op", op),
				slog.String("email", redact.Email(in.Email)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("admin_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return nil
}
