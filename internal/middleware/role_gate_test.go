package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netfluenz/netfluenz-api/internal/model"
)

type mockRoleFinder struct {
	role  string
	found bool
	err   error
	calls int
}

func (m *mockRoleFinder) FindRoleByID(ctx context.Context, id string) (string, bool, error) {
	m.calls++
	return m.role, m.found, m.err
}

func TestRoleGate(t *testing.T) {
	tests := []struct {
		name       string
		finder     *mockRoleFinder
		wantStatus int
	}{
		{name: "admin", finder: &mockRoleFinder{role: "admin", found: true}, wantStatus: http.StatusOK},
		{name: "influencer", finder: &mockRoleFinder{role: "influencer", found: true}, wantStatus: http.StatusForbidden},
		{name: "case differs", finder: &mockRoleFinder{role: "Admin", found: true}, wantStatus: http.StatusForbidden},
		{name: "empty role", finder: &mockRoleFinder{role: "", found: true}, wantStatus: http.StatusForbidden},
		{name: "no row", finder: &mockRoleFinder{found: false}, wantStatus: http.StatusForbidden},
		{name: "store error", finder: &mockRoleFinder{err: errors.New("timeout")}, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewRoleGateMiddleware(tt.finder, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, requestAs("u1"))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantStatus == http.StatusForbidden {
				body := decodeErrorBody(t, w)
				assert.Equal(t, model.ErrCodeForbidden, body.Code)
				assert.Equal(t, "Admin privileges required", body.Message)
			}
		})
	}
}

func TestRoleGate_NoIdentity_Returns401(t *testing.T) {
	finder := &mockRoleFinder{role: "admin", found: true}
	rec := &recordingDenied{}
	handler := NewRoleGateMiddleware(finder, rec)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/pending", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, finder.calls)
	assert.Equal(t, []string{"unauthenticated"}, rec.reasons)
}

func TestRoleGate_AfterBearerAuth(t *testing.T) {
	verifier := &mockVerifier{identity: &model.Identity{ID: "admin-1"}}
	finder := &mockRoleFinder{role: "admin", found: true}
	rec := &recordingDenied{}

	chain := NewBearerAuthMiddleware(verifier, rec)(NewRoleGateMiddleware(finder, rec)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/users/pending", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	finder.role = "brand"
	w = httptest.NewRecorder()
	chain.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"forbidden"}, rec.reasons)
}
