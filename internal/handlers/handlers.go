package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/services"
	xhttp "github.com/lodgio/whatsapp-gateway/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps service sentinels onto HTTP statuses. Upstream Graph
// API failures surface as 502 so callers can tell them from our own faults.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var apiErr *graph.APIError
	switch {
	case errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrConversationNotFound):
		writeError(ctx, 404, err.Error())
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrTenantExists),
		errors.Is(err, services.ErrNotConnected),
		errors.Is(err, services.ErrTokenExpired):
		writeError(ctx, 409, err.Error())
	case errors.Is(err, services.ErrInvalidCallback),
		errors.Is(err, services.ErrInvalidPin),
		errors.Is(err, services.ErrMissingWabaInfo),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrEmptyRecipient):
		writeError(ctx, 400, err.Error())
	case errors.As(err, &apiErr):
		writeError(ctx, 502, err.Error())
	default:
		writeError(ctx, 500, err.Error())
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) int {
	n, _ := strconv.Atoi(query(ctx, key))
	return n
}

func pathUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, error) {
	raw, _ := ctx.UserValue(name).(string)
	return uuid.Parse(raw)
}
