package resolver

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeserve/pipeserve/internal/pathwalk"
	"github.com/pipeserve/pipeserve/internal/pipestate"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pipeline stages require a POSIX shell")
	}
}

func script(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func seed(t *testing.T, body string) pipestate.State {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "body-")
	require.NoError(t, err)
	_, err = f.WriteString(body)
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	return &pipestate.StaticFile{Handle: f, Origin: f.Name(), Status: 200}
}

func TestResolve_StaticFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "hello.txt"), []byte("hi\n"), 0o644))

	state := pathwalk.Walk(base, []string{"hello.txt"}, nil, seed(t, ""))
	resp := Resolve(base, []string{"hello.txt"}, nil, state)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, uint16(200), resp.Status)
	assert.Equal(t, "hi\n", string(body))
	assert.Equal(t, "3", resp.Headers["Content-Length"])
}

func TestResolve_SuccessfulChainReturnsLastStageOutput(t *testing.T) {
	requireShell(t)
	base := t.TempDir()
	script(t, base, "upper", `printf 'X-Stage: upper\n' >&2; tr a-z A-Z`)

	state := pathwalk.Walk(base, []string{"upper"}, nil, seed(t, "hello"))
	resp := Resolve(base, []string{"upper"}, nil, state)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, uint16(200), resp.Status)
	assert.Equal(t, "HELLO", string(body))
	assert.Equal(t, "upper", resp.Headers["X-Stage"])
	assert.Equal(t, "5", resp.Headers["Content-Length"])
}

func TestResolve_MidChainFailureFindsErrorHandler(t *testing.T) {
	requireShell(t)
	base := t.TempDir()
	script(t, base, "deny", "exit 28") // index 28 in the exit-code table maps to 404
	require.NoError(t, os.WriteFile(filepath.Join(base, ".index"), []byte("handled"), 0o644))

	state := pathwalk.Walk(base, []string{"deny"}, nil, seed(t, ""))
	resp := Resolve(base, []string{"deny"}, nil, state)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "handled", string(body))
	assert.NotEqual(t, uint16(200), resp.Status)
}

func TestErrorPage_BodyAndCharsetMatchExactly(t *testing.T) {
	resp := errorPage(404)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Error 404: That's all we know", string(body))
	assert.Equal(t, "text/plain; charset=us-ascii", resp.Headers["Content-Type"])
	assert.Equal(t, "29", resp.Headers["Content-Length"])
}
