package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseRecorder はhttp.ResponseWriterをラップし、ステータスコードと書き込みバイト数を記録する。
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// statusCode は記録されたステータスコードを返す。何も書き込まれていなければ200。
func (rr *responseRecorder) statusCode() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}

// requestTrace はログミドルウェアの内側で確定した情報を外側へ渡すための入れ物。
// ベアラー認証はルートグループ単位で適用されるため、ログミドルウェアからは直接参照できない。
type requestTrace struct {
	userID string
}

var requestTraceContextKey = contextKey("request_trace")

// rememberUserID は検証済みのユーザーIDをrequestTraceに記録する。ログミドルウェアの外では何もしない。
func rememberUserID(ctx context.Context, userID string) {
	if t, ok := ctx.Value(requestTraceContextKey).(*requestTrace); ok {
		t.userID = userID
	}
}

// tracedUserID はrequestTraceに記録されたユーザーIDを返す。
func tracedUserID(ctx context.Context) string {
	if t, ok := ctx.Value(requestTraceContextKey).(*requestTrace); ok {
		return t.userID
	}
	return ""
}

// levelForStatus はレスポンスのステータスコードからログレベルを決める。
func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLoggingMiddleware はリクエストごとに"http_request"のJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、bytes、duration_msに加え、
// 分かる場合はrequest_idとuser_idを含める。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}
			trace := &requestTrace{}
			ctx := context.WithValue(r.Context(), requestTraceContextKey, trace)

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if id := RequestIDFromContext(ctx); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			userID := trace.userID
			if identity, err := IdentityFromContext(ctx); err == nil {
				userID = identity.ID
			}
			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			logger.LogAttrs(ctx, levelForStatus(status), "http_request", attrs...)
		})
	}
}
