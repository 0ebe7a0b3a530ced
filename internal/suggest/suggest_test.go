package suggest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearest_FindsCloseMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.html"), nil, 0o644))

	got := Nearest(dir, "indx.html", 3)
	assert.Contains(t, got, "index.html")
}

func TestNearest_MissingDirReturnsNil(t *testing.T) {
	assert.Nil(t, Nearest(filepath.Join(t.TempDir(), "gone"), "x", 3))
}
