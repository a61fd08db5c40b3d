package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKID = "test-key"

func newJWKSServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()

	jwks := JWKS{Keys: []JWK{{
		Kid: testKID,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKID
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWTValidator_Authenticate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newJWKSServer(t, key)

	v := NewJWTValidator(srv.URL, "https://id.taskchain.dev", "")

	token := signToken(t, key, jwt.MapClaims{
		"sub":    "user_123",
		"org_id": "org_admin",
		"iss":    "https://id.taskchain.dev",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	info, err := v.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", info.UserID)
	assert.Equal(t, "org_admin", info.OrgID)
}

func TestJWTValidator_RejectsBadTokens(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newJWKSServer(t, key)

	v := NewJWTValidator(srv.URL, "https://id.taskchain.dev", "")
	ctx := context.Background()

	expired := signToken(t, key, jwt.MapClaims{
		"sub": "user_123",
		"iss": "https://id.taskchain.dev",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	_, err = v.Authenticate(ctx, expired)
	assert.Error(t, err)

	wrongIssuer := signToken(t, key, jwt.MapClaims{
		"sub": "user_123",
		"iss": "https://evil.example",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Authenticate(ctx, wrongIssuer)
	assert.Error(t, err)

	noSubject := signToken(t, key, jwt.MapClaims{
		"iss": "https://id.taskchain.dev",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Authenticate(ctx, noSubject)
	assert.Error(t, err)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := signToken(t, other, jwt.MapClaims{
		"sub": "user_123",
		"iss": "https://id.taskchain.dev",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Authenticate(ctx, forged)
	assert.Error(t, err)
}

type staticAuthenticator struct {
	info *AuthInfo
	err  error
}

func (s staticAuthenticator) Authenticate(context.Context, string) (*AuthInfo, error) {
	return s.info, s.err
}

func TestMiddleware(t *testing.T) {
	var seen *AuthInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AuthInfoFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	h := Middleware(staticAuthenticator{info: &AuthInfo{UserID: "u1", OrgID: "admins"}}, zap.NewNop())(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", seen.UserID)
	assert.Equal(t, "admins", seen.OrgID)

	admin := Middleware(staticAuthenticator{info: &AuthInfo{UserID: "u1", OrgID: "devs"}}, zap.NewNop())(RequireOrg("admins")(next))
	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
