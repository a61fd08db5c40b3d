package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/user"
)

func newProfileTestServer(svc Service, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(auth.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	RegisterRoutes(r, NewLog(svc, zap.NewNop()), zap.NewNop())
	return r
}

func TestProfileHTTP_GetAndPut(t *testing.T) {
	handler := newProfileTestServer(NewService(newMockStore()), "u1")

	body := bytes.NewBufferString(`{"github_username":"octocat","wallet_address":"0x1111111111111111111111111111111111111111"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/me", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "octocat", got.GithubUsername)
	assert.True(t, got.HasWallet())
}

func TestProfileHTTP_InvalidWallet_ReturnsBadRequest(t *testing.T) {
	handler := newProfileTestServer(NewService(newMockStore()), "u1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{"wallet_address":"not-an-address"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHTTP_Unauthenticated(t *testing.T) {
	handler := newProfileTestServer(NewService(newMockStore()), "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
