package reconciler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/pkg/config"
)

func TestOpsRouter_ReadyFollowsScheduler(t *testing.T) {
	s := NewServer(&config.APIServerConfig{Monitoring: config.MonitoringConfig{Enabled: true}}, false)
	var ready atomic.Bool
	h := s.newRouter(&ready, zap.NewNop())

	get := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready"))
	ready.Store(true)
	assert.Equal(t, http.StatusOK, get("/ready"))
	assert.Equal(t, http.StatusOK, get("/metrics"))
}

func TestOpsRouter_MetricsDisabled(t *testing.T) {
	s := NewServer(&config.APIServerConfig{}, true)
	var ready atomic.Bool
	rec := httptest.NewRecorder()
	s.newRouter(&ready, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadBadgeCatalog(t *testing.T) {
	builtin, err := LoadBadgeCatalog(&config.BadgesConfig{})
	require.NoError(t, err)
	_, ok := builtin.Get("first_contribution")
	assert.True(t, ok)

	path := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`badges:
  - id: prs_10
    name: Code Contributor
    milestone: prs_10
`), 0o600))
	custom, err := LoadBadgeCatalog(&config.BadgesConfig{CatalogFile: path})
	require.NoError(t, err)
	assert.Len(t, custom.Badges(), 1)

	_, err = LoadBadgeCatalog(&config.BadgesConfig{CatalogFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
