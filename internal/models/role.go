package models

import (
	"errors"
	"strings"
)

// ErrUnknownRole — строка не соответствует ни одной известной роли.
var ErrUnknownRole = errors.New("unknown role")

// Role — роль пользователя, зашиваемая в claims токенов.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole приводит строку к Role. Регистр не учитывается,
// пустая или неизвестная строка — ErrUnknownRole.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", ErrUnknownRole
	}
}

// String возвращает строковое представление роли.
func (r Role) String() string { return string(r) }
