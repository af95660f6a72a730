package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfluenz/netfluenz-api/internal/model"
	"github.com/netfluenz/netfluenz-api/internal/supabase"
)

// mockProvider はIdentityProviderのテスト用実装。
type mockProvider struct {
	getUserFn func(ctx context.Context, token string) (*supabase.User, error)
	calls     int
	lastToken string
}

func (m *mockProvider) GetUser(ctx context.Context, token string) (*supabase.User, error) {
	m.calls++
	m.lastToken = token
	if m.getUserFn != nil {
		return m.getUserFn(ctx, token)
	}
	return &supabase.User{ID: "u1", Email: "u1@example.com"}, nil
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeUnauthenticated, apiErr.Code)
	assert.Equal(t, "Could not validate credentials", apiErr.Message)
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifier_Verify_Success(t *testing.T) {
	provider := &mockProvider{getUserFn: func(ctx context.Context, token string) (*supabase.User, error) {
		return &supabase.User{
			ID:           "u1",
			Email:        "u1@example.com",
			UserMetadata: map[string]any{"role": "brand"},
		}, nil
	}}
	v := NewVerifier(provider, "", nil)

	identity, err := v.Verify(context.Background(), "Bearer tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "u1@example.com", identity.Email)
	assert.Equal(t, "brand", identity.Role)
	assert.Equal(t, "tok-123", identity.AccessToken)
	assert.Equal(t, "tok-123", provider.lastToken)
}

func TestVerifier_Verify_MalformedHeader(t *testing.T) {
	headers := []string{
		"",
		"Bearer",
		"Bearer ",
		"bearer tok",
		"Basic dXNlcjpwYXNz",
		"Token tok",
		"Bearer  tok",
	}
	for _, h := range headers {
		provider := &mockProvider{}
		v := NewVerifier(provider, "", nil)

		identity, err := v.Verify(context.Background(), h)
		assert.Nil(t, identity, h)
		assertUnauthenticated(t, err)
		assert.Zero(t, provider.calls, "provider must not be called for %q", h)
	}
}

func TestVerifier_Verify_ProviderFailuresCollapse(t *testing.T) {
	for _, providerErr := range []error{
		supabase.ErrNoSession,
		&supabase.Error{StatusCode: 500, Message: "boom"},
		errors.New("dial tcp: connection refused"),
	} {
		provider := &mockProvider{getUserFn: func(ctx context.Context, token string) (*supabase.User, error) {
			return nil, providerErr
		}}
		v := NewVerifier(provider, "", nil)

		_, err := v.Verify(context.Background(), "Bearer tok")
		assertUnauthenticated(t, err)
		assert.NotContains(t, err.Error(), "boom")
		assert.NotContains(t, err.Error(), "connection refused")
	}
}

func TestVerifier_Precheck_ValidTokenReachesProvider(t *testing.T) {
	provider := &mockProvider{}
	v := NewVerifier(provider, "secret", nil)
	token := signToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	_, err := v.Verify(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestVerifier_Precheck_RejectsWithoutProviderCall(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "wrong secret", token: func(t *testing.T) string {
			return signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
		}},
		{name: "expired", token: func(t *testing.T) string {
			return signToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour))
		}},
		{name: "wrong algorithm", token: func(t *testing.T) string {
			return signToken(t, "secret", jwt.SigningMethodHS512, time.Now().Add(time.Hour))
		}},
		{name: "not a jwt", token: func(t *testing.T) string { return "opaque-token" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{}
			v := NewVerifier(provider, "secret", nil)

			_, err := v.Verify(context.Background(), "Bearer "+tt.token(t))
			assertUnauthenticated(t, err)
			assert.Zero(t, provider.calls)
		})
	}
}

func TestVerifier_Precheck_CannotAccept(t *testing.T) {
	provider := &mockProvider{getUserFn: func(ctx context.Context, token string) (*supabase.User, error) {
		return nil, supabase.ErrNoSession
	}}
	v := NewVerifier(provider, "secret", nil)
	token := signToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	_, err := v.Verify(context.Background(), "Bearer "+token)
	assertUnauthenticated(t, err)
	assert.Equal(t, 1, provider.calls)
}
