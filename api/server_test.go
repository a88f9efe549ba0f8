package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/rfidscan/config"
	"example.com/rfidscan/internal/cache"
	"example.com/rfidscan/internal/messaging"
	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/repository"
	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/search"
	"example.com/rfidscan/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTag = "04A1225B3C8011"

// unusedRepo satisfies repository.Repository; the HTTP paths under test
// never persist
type unusedRepo struct {
	repository.Repository
}

type keyStore map[string]*models.APIKey

func (k keyStore) GetAPIKeyByKey(_ context.Context, key string) (*models.APIKey, error) {
	apiKey, ok := k[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *apiKey
	return &copied, nil
}

func (k keyStore) UpdateAPIKey(context.Context, *models.APIKey) error {
	return nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	snapshotCache, err := cache.NewRedisCache(config.RedisConfig{})
	require.NoError(t, err)
	bus, err := messaging.NewServiceBusClient(config.ServiceBusConfig{}, "test", log)
	require.NoError(t, err)
	indexer, err := search.NewScanIndexer(config.ElasticConfig{})
	require.NoError(t, err)

	svc, err := service.NewService(service.ServiceConfig{
		Repository: unusedRepo{},
		Cache:      snapshotCache,
		Bus:        bus,
		Indexer:    indexer,
		Logger:     log,
		Capacity:   3,
	})
	require.NoError(t, err)

	keys := keyStore{
		"admin-key": {Key: "admin-key", Account: "ops", AuthorizationLevel: models.SudoAuthLevel},
		"alice-key": {Key: "alice-key", Account: "alice", AuthorizationLevel: models.WriterAuthLevel},
		"bob-key":   {Key: "bob-key", Account: "bob", AuthorizationLevel: models.WriterAuthLevel},
		"view-key":  {Key: "view-key", Account: "alice", AuthorizationLevel: models.ViewerAuthLevel},
	}

	cfg := &config.Config{Server: config.ServerConfig{Port: 0, Mode: "test"}}
	return NewServer(cfg, log, nil, svc, keys).Handler()
}

func do(t *testing.T, h http.Handler, method, path, key string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestScannerLifecycle(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/scanners", "admin-key", map[string]string{"account": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created scanlog.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, scanlog.Account("alice"), created.Account)
	assert.Contains(t, w.Body.String(), `"min":null`)

	w = do(t, h, http.MethodPost, "/api/v1/scanners/alice/scans", "alice-key",
		map[string]interface{}{"device_id": 1, "scan_time": 1700000000, "tag_uid": validTag})
	require.Equal(t, http.StatusCreated, w.Code)

	var event scanlog.ScanEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	assert.Equal(t, validTag, event.TagID.String())
	assert.NotZero(t, event.RecvTime)

	w = do(t, h, http.MethodGet, "/api/v1/scanners/alice", "view-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap scanlog.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, uint32(1), snap.NumTransactions)
	assert.Len(t, snap.Events, 1)

	w = do(t, h, http.MethodGet, "/api/v1/scanners", "view-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alice"`)

	w = do(t, h, http.MethodPost, "/api/v1/scanners/alice/reset", "alice-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Zero(t, snap.NumTransactions)
	assert.Empty(t, snap.Events)
}

func TestSubmitScan_ZeroScanTime(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/api/v1/scanners", "admin-key", map[string]string{"account": "alice"}).Code)

	w := do(t, h, http.MethodPost, "/api/v1/scanners/alice/scans", "alice-key",
		map[string]interface{}{"device_id": 1, "scan_time": 0, "tag_uid": validTag})
	require.Equal(t, http.StatusCreated, w.Code)

	var event scanlog.ScanEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	assert.Zero(t, event.ScanTime)
	assert.Equal(t, float64(event.RecvTime), event.Latency())
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/api/v1/scanners", "admin-key", map[string]string{"account": "alice"}).Code)

	cases := []struct {
		name   string
		method string
		path   string
		key    string
		body   interface{}
		status int
		code   string
	}{
		{"duplicate create", http.MethodPost, "/api/v1/scanners", "admin-key", map[string]string{"account": "alice"}, http.StatusConflict, "CONFLICT"},
		{"create needs sudo", http.MethodPost, "/api/v1/scanners", "alice-key", map[string]string{"account": "carol"}, http.StatusForbidden, "FORBIDDEN"},
		{"bad account", http.MethodPost, "/api/v1/scanners", "admin-key", map[string]string{"account": "a/b"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown scanner", http.MethodGet, "/api/v1/scanners/nobody", "view-key", nil, http.StatusNotFound, "NOT_FOUND"},
		{"other caller", http.MethodPost, "/api/v1/scanners/alice/scans", "bob-key",
			map[string]interface{}{"scan_time": 1, "tag_uid": validTag}, http.StatusForbidden, "FORBIDDEN"},
		{"short tag", http.MethodPost, "/api/v1/scanners/alice/scans", "alice-key",
			map[string]interface{}{"scan_time": 1, "tag_uid": "0102"}, http.StatusBadRequest, "INVALID_TAG_LENGTH"},
		{"non-hex tag", http.MethodPost, "/api/v1/scanners/alice/scans", "alice-key",
			map[string]interface{}{"scan_time": 1, "tag_uid": "xyz"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing scan time", http.MethodPost, "/api/v1/scanners/alice/scans", "alice-key",
			map[string]interface{}{"tag_uid": validTag}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"viewer cannot submit", http.MethodPost, "/api/v1/scanners/alice/scans", "view-key",
			map[string]interface{}{"scan_time": 1, "tag_uid": validTag}, http.StatusForbidden, "FORBIDDEN"},
		{"reset by other caller", http.MethodPost, "/api/v1/scanners/alice/reset", "bob-key", nil, http.StatusForbidden, "FORBIDDEN"},
		{"missing key", http.MethodGet, "/api/v1/scanners", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown key", http.MethodGet, "/api/v1/scanners", "nope", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"search disabled", http.MethodGet, "/api/v1/scanners/alice/scans/search?tag_uid=" + validTag, "view-key", nil, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"search without tag", http.MethodGet, "/api/v1/scanners/alice/scans/search", "view-key", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, tc.path, tc.key, tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestPublicEndpoints(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info service.VersionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 3, info.Capacity)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
