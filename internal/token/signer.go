// token выпускает и проверяет подписанные JWT (HS256) для access и refresh токенов.
//
// Основные аспекты:
//   - у каждого вида токена свой секрет и срок жизни (Key);
//   - вид токена зашивается в claim "typ", поэтому access-токен не пройдёт
//     проверку как refresh даже при совпадении секретов;
//   - подпись проверяется до claims: токен с чужой подписью всегда ErrInvalid,
//     даже если он уже истёк.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/config"
	"github.com/pribylovaa/go-starwars-api/internal/models"
)

var (
	// ErrSigning — токен не удалось подписать (пустой секрет, TTL ≤ 0, сбой библиотеки).
	ErrSigning = errors.New("token signing failed")
	// ErrExpired — подпись корректна, но срок действия истёк.
	ErrExpired = errors.New("token expired")
	// ErrInvalid — подпись, структура, алгоритм, issuer/audience, вид или содержимое claims неверны.
	ErrInvalid = errors.New("token invalid")
)

// DefaultLeeway — допуск на рассинхронизацию часов при проверке exp/iat.
const DefaultLeeway = 5 * time.Second

// Key — параметры подписи одного вида токенов.
type Key struct {
	Kind   models.TokenKind
	Secret string
	TTL    time.Duration
}

// Keys — пара ключей для access и refresh токенов.
type Keys struct {
	Access  Key
	Refresh Key
}

// KeysFrom строит ключи из конфигурации.
func KeysFrom(cfg config.AuthConfig) Keys {
	return Keys{
		Access:  Key{Kind: models.TokenAccess, Secret: cfg.AccessTokenSecret, TTL: cfg.AccessTokenTTL},
		Refresh: Key{Kind: models.TokenRefresh, Secret: cfg.RefreshTokenSecret, TTL: cfg.RefreshTokenTTL},
	}
}

type claims struct {
	UserID string           `json:"uid"`
	Email  string           `json:"email"`
	Role   string           `json:"role"`
	Kind   models.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Signer подписывает и проверяет токены. После создания не изменяется
// и безопасен для конкурентного использования.
type Signer struct {
	issuer   string
	audience []string
	leeway   time.Duration
	now      func() time.Time
}

// Option настраивает Signer.
type Option func(*Signer)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithLeeway задаёт допуск на рассинхронизацию часов.
func WithLeeway(d time.Duration) Option {
	return func(s *Signer) { s.leeway = d }
}

// NewSigner создаёт Signer с заданными issuer и audience.
func NewSigner(issuer string, audience []string, opts ...Option) *Signer {
	s := &Signer{
		issuer:   issuer,
		audience: append([]string(nil), audience...),
		leeway:   DefaultLeeway,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Issue подписывает payload ключом key и возвращает токен и момент его истечения (UTC).
func (s *Signer) Issue(payload models.TokenPayload, key Key) (string, time.Time, error) {
	const op = "token.Signer.Issue"

	if key.Secret == "" {
		return "", time.Time{}, fmt.Errorf("%s: empty %s secret: %w", op, key.Kind, ErrSigning)
	}
	if key.TTL <= 0 {
		return "", time.Time{}, fmt.Errorf("%s: non-positive %s ttl: %w", op, key.Kind, ErrSigning)
	}

	now := s.now().UTC()
	exp := now.Add(key.TTL)

	c := claims{
		UserID: payload.SubjectID.String(),
		Email:  payload.Email,
		Role:   string(payload.Role),
		Kind:   key.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   payload.SubjectID.String(),
			Audience:  jwt.ClaimStrings(s.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(key.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w: %v", op, ErrSigning, err)
	}

	// exp в JWT хранится с точностью до секунды.
	return signed, exp.Truncate(time.Second), nil
}

// Verify проверяет токен ключом key и возвращает payload.
func (s *Signer) Verify(tok string, key Key) (models.TokenPayload, error) {
	const op = "token.Signer.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(s.issuer),
	}
	if len(s.audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.audience...))
	}

	var c claims
	_, err := jwt.ParseWithClaims(tok, &c, func(t *jwt.Token) (any, error) {
		if key.Secret == "" {
			return nil, ErrInvalid
		}
		return []byte(key.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.TokenPayload{}, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return models.TokenPayload{}, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	if c.Kind != key.Kind {
		return models.TokenPayload{}, fmt.Errorf("%s: kind %q, want %q: %w", op, c.Kind, key.Kind, ErrInvalid)
	}

	uid, err := uuid.Parse(c.UserID)
	if err != nil || c.Subject != c.UserID {
		return models.TokenPayload{}, fmt.Errorf("%s: bad subject: %w", op, ErrInvalid)
	}

	role, err := models.ParseRole(c.Role)
	if err != nil || string(role) != c.Role {
		return models.TokenPayload{}, fmt.Errorf("%s: bad role: %w", op, ErrInvalid)
	}

	return models.TokenPayload{SubjectID: uid, Email: c.Email, Role: role}, nil
}
