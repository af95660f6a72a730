package supabase

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoSession はトークンに対応する有効なセッションが無いことを示す。
var ErrNoSession = errors.New("supabase: no valid session for token")

// User は認証サービスが返すユーザー情報のうち、本サービスが利用する部分。
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// MetadataString はuser_metadataの文字列値を返す。存在しないか文字列でない場合は空文字列。
func (u *User) MetadataString(key string) string {
	if u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata[key].(string)
	return s
}

// GetUser はアクセストークンを認証サービスに送り、対応するユーザーを返す。
// 認証サービスが401/403を返した場合、またはユーザーIDが空の場合はErrNoSessionを返す。
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.do(ctx, "auth", http.MethodGet, authPath+"/user", c.UserCredential(accessToken), nil, nil, &user)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrNoSession
	}
	return &user, nil
}

// AuthHealth は認証サービスのヘルスエンドポイントを確認する。
func (c *Client) AuthHealth(ctx context.Context) error {
	cred := Credential{apiKey: c.anonKey}
	return c.do(ctx, "auth", http.MethodGet, authPath+"/health", cred, nil, nil, nil)
}
