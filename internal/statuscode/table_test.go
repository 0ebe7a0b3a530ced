package statuscode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromExitCode_SuccessIsIndexZero(t *testing.T) {
	assert.Equal(t, uint16(200), FromExitCode(0))
}

func TestFromExitCode_OutOfRangeIs500(t *testing.T) {
	assert.Equal(t, uint16(500), FromExitCode(len(Table)))
	assert.Equal(t, uint16(500), FromExitCode(-1))
	assert.Equal(t, uint16(500), FromExitCode(999))
}

func TestFromExitCode_KnownIndex(t *testing.T) {
	// index 1 is the first 1xx code: 100
	assert.Equal(t, uint16(100), FromExitCode(1))
}

func TestEnviron_HasOneEntryPerTableSlot(t *testing.T) {
	env := Environ()
	require.Len(t, env, len(Table))
	assert.Contains(t, env, "200=0")
	assert.Contains(t, env, "404=28")
}
