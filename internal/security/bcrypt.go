// security — одностороннее хэширование паролей.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong — bcrypt учитывает не более 72 байт пароля.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// BcryptHasher хэширует пароли bcrypt с заданной стоимостью.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher возвращает хэшер; стоимость вне допустимого диапазона
// заменяется на bcrypt.DefaultCost.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return BcryptHasher{Cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (h BcryptHasher) Hash(plain string) (string, error) {
	const op = "security.BcryptHasher.Hash"

	if len(plain) > 72 {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Compare сверяет пароль с хэшем за постоянное время.
// Любая ошибка (в том числе битый хэш) — несовпадение.
func (h BcryptHasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
