// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает доменную ошибку (сентинелы service и транспорта),
// на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code;
//   - краткое безопасное message без утечки деталей.
//
// Ошибки 5xx клиенту отдаются обобщённо, полная ошибка пишется в лог.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	logctx "github.com/pribylovaa/go-starwars-api/internal/pkg/log"
	"github.com/pribylovaa/go-starwars-api/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrBadRequest — тело или параметры запроса не разобраны.
	ErrBadRequest = errors.New("bad request")
	// ErrTooManyRequests — превышен лимит частоты запросов.
	ErrTooManyRequests = errors.New("too many requests")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки и не маскировать баг;
//   - известные сентинелы — по таблице mapping();
//   - прочее — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := mapping(err)
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров и мидлваров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError {
		errText := "<nil>"
		if err != nil {
			errText = err.Error()
		}
		logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "request_failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("err", errText),
		)
	}

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// mapping — таблица доменная ошибка -> HTTP/FE-код/сообщение:
//   - ErrInvalidInput (ошибки полей регистрации), ErrBadRequest -> 400
//   - ErrInvalidCredentials -> 401 (не раскрывает, какое поле неверно)
//   - ErrTokenExpired -> 401/token_expired
//   - ErrTokenInvalid, ErrUnauthenticated -> 401/unauthenticated
//   - ErrForbidden -> 403
//   - ErrUserNotFound -> 404
//   - ErrEmailTaken -> 409
//   - ErrTooManyRequests -> 429
//   - context.Canceled -> 499 (клиент закрыл соединение)
//   - context.DeadlineExceeded -> 504
//   - прочее, включая ErrTokenIssuance -> 500/internal
func mapping(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_argument", fieldMessage(err)
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_argument", "invalid request body"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token expired"
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "already_exists", "email already taken"
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "resource_exhausted", "too many requests"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// fieldMessage возвращает текст ошибки конкретного поля, если он известен.
func fieldMessage(err error) string {
	for _, f := range []error{service.ErrInvalidEmail, service.ErrInvalidPassword, service.ErrInvalidName} {
		if errors.Is(err, f) {
			return f.Error()
		}
	}

	return "invalid argument"
}
