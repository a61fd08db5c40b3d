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
	"github.com/taskchain/taskchain/pkg/reward"
)

func newRewardTestServer(svc Service, info *auth.AuthInfo) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithAuthInfo(req.Context(), info)))
		})
	})
	RegisterRoutes(r, NewLog(svc, zap.NewNop()), zap.NewNop(), auth.RequireOrg("admins"))
	return r
}

func TestRewardHTTP_GrantRequiresAdminOrg(t *testing.T) {
	svc := newTestService(newMemStore(), &mockClaimer{})
	body := `{"user_id":"u1","amount":"5.00","reward_type":"milestone"}`

	member := newRewardTestServer(svc, &auth.AuthInfo{UserID: "u2", OrgID: "devs"})
	rec := httptest.NewRecorder()
	member.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rewards", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := newRewardTestServer(svc, &auth.AuthInfo{UserID: "u2", OrgID: "admins"})
	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rewards", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var g reward.Grant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, "u1", g.UserID)
	assert.Equal(t, "5", g.Amount.String())
}

func TestRewardHTTP_ClaimFlow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &mockClaimer{})
	_, err := svc.Grant(t.Context(), &reward.GrantRequest{UserID: "u1", Amount: "2.5", RewardType: reward.TypeWeekly})
	require.NoError(t, err)

	handler := newRewardTestServer(svc, &auth.AuthInfo{UserID: "u1"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rewards/claim", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var g reward.Grant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.True(t, g.Claimed())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rewards/claim", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rewards/claim", bytes.NewBufferString(`{"tx_hash":"nothex"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rewards", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Rewards, 1)
}
