package middleware

import (
	"context"
	"net/http"

	"github.com/netfluenz/netfluenz-api/internal/model"
)

// CredentialVerifier はAuthorizationヘッダーを検証するインターフェース。
// auth.Verifierが実装する。
type CredentialVerifier interface {
	Verify(ctx context.Context, authorization string) (*model.Identity, error)
}

// AccessDeniedRecorder は認証・認可の拒否を記録するインターフェース。
// metrics.Collectorが実装する。
type AccessDeniedRecorder interface {
	RecordAccessDenied(reason string)
}

// NewBearerAuthMiddleware はベアラートークンを検証し、Identityをリクエストコンテキストに注入するミドルウェアを返す。
// 検証に失敗した場合は401を返し、後続のハンドラーは呼ばれない。recorderはnilでもよい。
func NewBearerAuthMiddleware(verifier CredentialVerifier, recorder AccessDeniedRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				recordDenied(recorder, "unauthenticated")
				WriteAPIError(w, model.NewUnauthenticatedError())
				return
			}

			rememberUserID(r.Context(), identity.ID)
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func recordDenied(recorder AccessDeniedRecorder, reason string) {
	if recorder != nil {
		recorder.RecordAccessDenied(reason)
	}
}
