package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind — тип токена; зашивается в claim "typ" и проверяется при валидации.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenPayload — набор claims, общий для access и refresh токенов.
// Значение неизменяемо и на сервере не хранится.
type TokenPayload struct {
	SubjectID uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
}

// PayloadOf строит TokenPayload из учётной записи.
func PayloadOf(u *User) TokenPayload {
	return TokenPayload{
		SubjectID: u.ID,
		Email:     u.Email,
		Role:      u.Role,
	}
}

// TokenPair — пара токенов, выдаваемая при входе.
//
// Описание:
//   - AccessToken — короткоживущий JWT, предъявляется в заголовке Authorization;
//   - RefreshToken — долгоживущий JWT, подписанный отдельным секретом; клиенту
//     отдаётся только через HttpOnly-cookie и никогда не попадает в JSON;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}
