package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/pkg/log"
	"github.com/pribylovaa/go-starwars-api/internal/pkg/redact"
	"github.com/pribylovaa/go-starwars-api/internal/storage"
	"github.com/pribylovaa/go-starwars-api/internal/token"
	"golang.org/x/sync/errgroup"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 50
	// bcrypt учитывает только первые 72 байта.
	maxPasswordBytes = 72
)

// RegisterInput — данные для регистрации пользователя.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginUser проверяет email/пароль и выпускает пару токенов.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "service.auth.LoginUser"

	lg := log.From(ctx)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(email)),
				slog.String("reason", "unknown_email"),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("login_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		lg.Info("login_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("reason", "password_mismatch"),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, models.PayloadOf(user))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_succeeded",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role.String()),
	)

	return pair, nil
}

// RegisterUser создаёт пользователя с ролью USER и возвращает его публичную проекцию.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	const op = "service.auth.RegisterUser"

	lg := log.From(ctx)

	in, err := validateRegister(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.createUser(ctx, in, models.RoleUser)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			lg.Info("register_conflict",
				slog.String("op", op),
				slog.String("email", redact.Email(in.Email)),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return user.Public(), nil
}

// RefreshToken выпускает новый access-токен по уже проверенному payload refresh-токена.
// Сам refresh-токен не ротируется.
func (s *Service) RefreshToken(ctx context.Context, payload models.TokenPayload) (string, time.Time, error) {
	const op = "service.auth.RefreshToken"

	tok, exp, err := s.signer.Issue(payload, s.keys.Access)
	if err != nil {
		log.From(ctx).Error("token_issue_failed",
			slog.String("op", op),
			slog.String("kind", string(models.TokenAccess)),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w: %w", op, ErrTokenIssuance, err)
	}

	return tok, exp, nil
}

// VerifyAccessToken проверяет access-токен.
func (s *Service) VerifyAccessToken(tok string) (models.TokenPayload, error) {
	return s.verify("service.auth.VerifyAccessToken", tok, s.keys.Access)
}

// VerifyRefreshToken проверяет refresh-токен.
func (s *Service) VerifyRefreshToken(tok string) (models.TokenPayload, error) {
	return s.verify("service.auth.VerifyRefreshToken", tok, s.keys.Refresh)
}

func (s *Service) verify(op, tok string, key token.Key) (models.TokenPayload, error) {
	if tok == "" {
		return models.TokenPayload{}, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	p, err := s.signer.Verify(tok, key)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return models.TokenPayload{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return models.TokenPayload{}, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	return p, nil
}

// issueTokenPair выпускает access и refresh токены параллельно.
// Выпуск не привязан к контексту запроса: при разрыве соединения он
// завершается, а результат просто отбрасывается. Частичной пары не бывает.
func (s *Service) issueTokenPair(ctx context.Context, payload models.TokenPayload) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	var (
		pair models.TokenPair
		g    errgroup.Group
	)

	g.Go(func() error {
		tok, exp, err := s.signer.Issue(payload, s.keys.Access)
		if err != nil {
			return fmt.Errorf("access: %w", err)
		}
		pair.AccessToken, pair.AccessExpiresAt = tok, exp
		return nil
	})

	g.Go(func() error {
		tok, _, err := s.signer.Issue(payload, s.keys.Refresh)
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		pair.RefreshToken = tok
		return nil
	})

	if err := g.Wait(); err != nil {
		log.From(ctx).Error("token_issue_failed",
			slog.String("op", op),
			slog.String("user_id", payload.SubjectID.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenIssuance, err)
	}

	return &pair, nil
}

// createUser хэширует пароль и сохраняет пользователя с заданной ролью.
func (s *Service) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	const op = "service.auth.createUser"

	_, err := s.userByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.users.UserByEmail(ctx, email)
}

// storeContext ограничивает обращение к хранилищу таймаутом auth.store_timeout.
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func validateRegister(in RegisterInput) (RegisterInput, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := validateEmail(in.Email); err != nil {
		return in, err
	}

	if err := validatePassword(in.Password); err != nil {
		return in, err
	}

	if in.FirstName == "" || in.LastName == "" {
		return in, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidName)
	}

	return in, nil
}

// validateEmail допускает только голый адрес (без display name) с доменом вида x.y.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidEmail)
	}

	domain := email[strings.LastIndexByte(email, '@')+1:]
	if !strings.Contains(strings.Trim(domain, "."), ".") {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidEmail)
	}

	return nil
}

func validatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen || n > maxPasswordLen || len(pw) > maxPasswordBytes {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidPassword)
	}

	return nil
}
