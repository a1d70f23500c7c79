package middleware

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/go-starwars-api/internal/models"
)

// requestInfo собирает то, что внутренние мидлвары узнают о запросе,
// для итоговой записи "http". Создаётся в Logging, заполняется гейтом и Timeout.
// Запрос обрабатывается в одной горутине, поэтому синхронизация не нужна.
type requestInfo struct {
	decision string
	userID   string
	role     models.Role
	timedOut bool
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	ri := &requestInfo{}
	return context.WithValue(ctx, ctxRequestInfo, ri), ri
}

// requestInfoFrom возвращает holder запроса или nil, если Logging не подключён.
func requestInfoFrom(ctx context.Context) *requestInfo {
	ri, _ := ctx.Value(ctxRequestInfo).(*requestInfo)
	return ri
}

func (ri *requestInfo) setDecision(decision string, p *models.TokenPayload) {
	if ri == nil {
		return
	}

	ri.decision = decision
	if p != nil {
		ri.userID = p.SubjectID.String()
		ri.role = p.Role
	}
}

func (ri *requestInfo) markTimedOut() {
	if ri != nil {
		ri.timedOut = true
	}
}

// attrs возвращает только заполненные поля.
func (ri *requestInfo) attrs() []slog.Attr {
	var out []slog.Attr
	if ri.decision != "" {
		out = append(out, slog.String("gate", ri.decision))
	}
	if ri.userID != "" {
		out = append(out, slog.String("user_id", ri.userID), slog.String("role", ri.role.String()))
	}
	if ri.timedOut {
		out = append(out, slog.Bool("timed_out", true))
	}
	return out
}
