package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/moderation"
)

// ModerationServiceInterface はモデレーションハンドラーが必要とするサービスインターフェース。
type ModerationServiceInterface interface {
	ListPending(ctx context.Context) ([]*model.Profile, error)
	ListAll(ctx context.Context) ([]*model.Profile, error)
	ListRecycled(ctx context.Context) ([]*model.Profile, error)
	Approve(ctx context.Context, actor *model.Identity, id string) (*moderation.ActionResult, error)
	Reject(ctx context.Context, actor *model.Identity, id string) (*moderation.ActionResult, error)
	Restore(ctx context.Context, actor *model.Identity, id string) (*moderation.ActionResult, error)
}

// ModerationHandler は管理者向けモデレーションのHTTPハンドラー。
// ルーティング側でロールゲートを通過したリクエストのみを受け取る。
type ModerationHandler struct {
	service ModerationServiceInterface
}

// NewModerationHandler はModerationHandlerを生成する。
func NewModerationHandler(service ModerationServiceInterface) *ModerationHandler {
	return &ModerationHandler{service: service}
}

// ListPending は承認待ちのプロフィール一覧を返す。
// GET /api/users/pending
func (h *ModerationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListPending)
}

// ListAll はゴミ箱以外の全プロフィールを返す。
// GET /api/users/all
func (h *ModerationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAll)
}

// ListRecycled はゴミ箱内のプロフィールを返す。
// GET /api/users/recycled
func (h *ModerationHandler) ListRecycled(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListRecycled)
}

// Approve はプロフィールを承認する。
// POST /api/users/{id}/approve
func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Approve)
}

// Reject はプロフィールを却下してゴミ箱に移動する。
// POST /api/users/{id}/reject
func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Reject)
}

// Restore はゴミ箱からプロフィールを復元する。
// POST /api/users/{id}/restore
func (h *ModerationHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Restore)
}

func (h *ModerationHandler) list(w http.ResponseWriter, r *http.Request, fn func(context.Context) ([]*model.Profile, error)) {
	profiles, err := fn(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ModerationHandler) act(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, *model.Identity, string) (*moderation.ActionResult, error),
) {
	actor := requireIdentity(w, r)
	if actor == nil {
		return
	}

	res, err := fn(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
