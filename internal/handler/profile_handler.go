package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/netfluenz/netfluenz-api/internal/middleware"
	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/profile"
)

// maxRequestBodySize はリクエストボディの上限。
const maxRequestBodySize = 1 << 20

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// GetOwn は呼び出し元のプロフィール、または行が無い場合の代替ビューを返す。
	GetOwn(ctx context.Context, identity *model.Identity) (*profile.Result, error)
	// UpdateOwn は指定された項目のみを更新し、更新後の行を返す。
	UpdateOwn(ctx context.Context, identity *model.Identity, patch model.ProfilePatch) (*model.Profile, error)
}

// ProfileHandler は自分のプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// GetMe は呼び出し元のプロフィールを返す。
// GET /api/users/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	res, err := h.service.GetOwn(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res.Value())
}

// UpdateMe は呼び出し元のプロフィールを部分更新する。
// PUT /api/users/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var patch model.ProfilePatch
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("Request body must be a JSON object"))
		return
	}

	p, err := h.service.UpdateOwn(r.Context(), identity, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func identityFromRequest(r *http.Request) (*model.Identity, error) {
	return middleware.IdentityFromContext(r.Context())
}
