package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/pipeserve/pipeserve/internal/config"
	"github.com/pipeserve/pipeserve/internal/trace"
)

func testServer(t *testing.T, base string) *Server {
	t.Helper()
	return &Server{
		cfg:    &config.ServerConfig{BaseFolder: base, MaxBodyBytes: 10 << 20, SuggestOnMissing: true},
		sink:   trace.NopSink{},
		logger: commonlog.GetLogger("pipeserve-test"),
	}
}

func TestServeHTTP_StaticFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "hello.txt"), []byte("hi\n"), 0o644))

	srv := testServer(t, base)
	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	rec := httptest.NewRecorder()

	srv.serveHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi\n", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestServeHTTP_MissingFileReturns404(t *testing.T) {
	base := t.TempDir()
	srv := testServer(t, base)
	req := httptest.NewRequest(http.MethodGet, "/nope.txt", nil)
	rec := httptest.NewRecorder()

	srv.serveHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_BodyOverMaxBodyBytesRejected(t *testing.T) {
	base := t.TempDir()
	srv := testServer(t, base)
	srv.cfg.MaxBodyBytes = 4

	req := httptest.NewRequest(http.MethodPost, "/hello.txt", strings.NewReader("way too long"))
	rec := httptest.NewRecorder()

	srv.serveHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSplitLayers_DropsEmptySegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitLayers("/a/b/"))
	assert.Equal(t, []string{}, splitLayers("/"))
}
