package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/netfluenz/netfluenz-api/internal/middleware"
	"github.com/netfluenz/netfluenz-api/internal/model"
)

// apiErrorResponse はエラーレスポンスのボディ。テストでのデコードにも使う。
type apiErrorResponse = middleware.ErrorResponseBody

// writeJSON は値をJSONとして書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーをレスポンスに変換する。
// APIError以外のエラーは詳細を伏せて500とする。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// requireIdentity はリクエストコンテキストのIdentityを返す。無い場合は401を書き込みnilを返す。
func requireIdentity(w http.ResponseWriter, r *http.Request) *model.Identity {
	identity, err := identityFromRequest(r)
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return nil
	}
	return identity
}
