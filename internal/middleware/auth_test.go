package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfluenz/netfluenz-api/internal/model"
)

// --- モック ---

type mockVerifier struct {
	identity   *model.Identity
	err        error
	lastHeader string
}

func (m *mockVerifier) Verify(ctx context.Context, authorization string) (*model.Identity, error) {
	m.lastHeader = authorization
	if m.err != nil {
		return nil, m.err
	}
	return m.identity, nil
}

type recordingDenied struct {
	reasons []string
}

func (r *recordingDenied) RecordAccessDenied(reason string) {
	r.reasons = append(r.reasons, reason)
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestBearerAuth_InjectsIdentity(t *testing.T) {
	verifier := &mockVerifier{identity: &model.Identity{ID: "u1", Email: "u1@example.com", AccessToken: "tok"}}

	var got *model.Identity
	handler := NewBearerAuthMiddleware(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := IdentityFromContext(r.Context())
		assert.NoError(t, err)
		got = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer tok", verifier.lastHeader)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
}

func TestBearerAuth_Failure_Returns401WithoutCallingNext(t *testing.T) {
	verifier := &mockVerifier{err: model.NewUnauthenticatedError()}
	rec := &recordingDenied{}

	called := false
	handler := NewBearerAuthMiddleware(verifier, rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
	body := decodeErrorBody(t, w)
	assert.Equal(t, model.ErrCodeUnauthenticated, body.Code)
	assert.Equal(t, "Could not validate credentials", body.Message)
	assert.Equal(t, []string{"unauthenticated"}, rec.reasons)
}

func TestIdentityFromContext_Missing(t *testing.T) {
	_, err := IdentityFromContext(context.Background())
	assert.Error(t, err)

	_, err = IdentityFromContext(ContextWithIdentity(context.Background(), &model.Identity{}))
	assert.Error(t, err)

	_, err = UserIDFromContext(context.Background())
	assert.Error(t, err)
}
