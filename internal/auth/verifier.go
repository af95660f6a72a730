// Package auth はベアラートークンの検証を提供する。
//
// トークンは外部の認証サービスに問い合わせて検証する。
// JWTシークレットが設定されている場合は、問い合わせ前にローカルで署名と有効期限を確認し、
// 明らかに不正なトークンを早期に拒否する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/supabase"
)

const bearerPrefix = "Bearer "

var (
	errMissingHeader = errors.New("missing authorization header")
	errInvalidScheme = errors.New("authorization scheme is not Bearer")
	errEmptyToken    = errors.New("empty bearer token")
)

// IdentityProvider はアクセストークンからユーザーを解決するインターフェース。
// supabase.Clientが実装する。
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// Verifier はAuthorizationヘッダーを検証し、呼び出し元のIdentityを返す。
type Verifier struct {
	provider  IdentityProvider
	jwtSecret []byte
	logger    *slog.Logger
}

// NewVerifier はVerifierを生成する。jwtSecretが空の場合はローカル事前検証を行わない。
func NewVerifier(provider IdentityProvider, jwtSecret string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{
		provider: provider,
		logger:   logger,
	}
	if jwtSecret != "" {
		v.jwtSecret = []byte(jwtSecret)
	}
	return v
}

// Verify はAuthorizationヘッダーの値を検証する。
// 失敗理由はログにのみ記録し、呼び出し元には常に同一のUNAUTHENTICATEDエラーを返す。
func (v *Verifier) Verify(ctx context.Context, authorization string) (*model.Identity, error) {
	token, err := parseBearer(authorization)
	if err != nil {
		v.logger.Warn("credential rejected",
			slog.String("stage", "header"),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUnauthenticatedError()
	}

	if v.jwtSecret != nil {
		if err := v.precheck(token); err != nil {
			v.logger.Warn("credential rejected",
				slog.String("stage", "precheck"),
				slog.String("error", err.Error()),
			)
			return nil, model.NewUnauthenticatedError()
		}
	}

	user, err := v.provider.GetUser(ctx, token)
	if err != nil {
		stage := "auth_service"
		if errors.Is(err, supabase.ErrNoSession) {
			stage = "session"
		}
		v.logger.Warn("credential rejected",
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUnauthenticatedError()
	}

	return &model.Identity{
		ID:          user.ID,
		Email:       user.Email,
		Role:        user.MetadataString("role"),
		AccessToken: token,
	}, nil
}

// precheck はHS256署名と有効期限をローカルで検証する。
// 受理の判断は常に認証サービスが行うため、ここでは拒否のみを行う。
func (v *Verifier) precheck(token string) error {
	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("local token check failed: %w", err)
	}
	return nil
}

// parseBearer は"Bearer <token>"形式のヘッダーからトークンを取り出す。
// スキームは大文字小文字を区別する。
func parseBearer(authorization string) (string, error) {
	if authorization == "" {
		return "", errMissingHeader
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", errInvalidScheme
	}
	token := authorization[len(bearerPrefix):]
	if token == "" || strings.TrimSpace(token) != token {
		return "", errEmptyToken
	}
	return token, nil
}
