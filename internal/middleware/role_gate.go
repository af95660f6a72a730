package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/netfluenz/netfluenz-api/internal/model"
)

// RoleFinder はプロフィールのroleを特権資格情報で取得するインターフェース。
// repository.AdminProfileRepositoryの部分集合として定義する。
type RoleFinder interface {
	FindRoleByID(ctx context.Context, id string) (role string, found bool, err error)
}

// NewRoleGateMiddleware は呼び出し元のroleが"admin"であることを要求するミドルウェアを返す。
// NewBearerAuthMiddlewareの後に配置すること。
// 行が無い、取得に失敗した、roleが"admin"と完全一致しない場合は403を返す。
func NewRoleGateMiddleware(finder RoleFinder, recorder AccessDeniedRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				recordDenied(recorder, "unauthenticated")
				WriteAPIError(w, model.NewUnauthenticatedError())
				return
			}

			role, found, err := finder.FindRoleByID(r.Context(), identity.ID)
			if err != nil {
				slog.Error("failed to resolve caller role",
					slog.String("user_id", identity.ID),
					slog.String("error", err.Error()),
				)
			}
			if err != nil || !found || role != model.RoleAdmin {
				slog.Warn("admin access denied",
					slog.String("user_id", identity.ID),
					slog.String("role", role),
					slog.Bool("found", found),
				)
				recordDenied(recorder, "forbidden")
				WriteAPIError(w, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
