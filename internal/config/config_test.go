package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidDocumentAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(`
basefolder: /srv/site
address: 0.0.0.0:8443
`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/site", cfg.BaseFolder)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.ShutdownGrace)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.True(t, cfg.SuggestOnMissing)
}

func TestLoad_OverridesMaxBodyBytesAndSuggestOnMissing(t *testing.T) {
	cfg, err := Load([]byte(`
basefolder: /srv/site
address: 0.0.0.0:8443
max_body_bytes: 1024
suggest_on_missing: false
`))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), cfg.MaxBodyBytes)
	assert.False(t, cfg.SuggestOnMissing)
}

func TestLoad_MissingRequiredFieldFails(t *testing.T) {
	_, err := Load([]byte(`address: 0.0.0.0:8443`))
	assert.Error(t, err)
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	_, err := Load([]byte(`
basefolder: /srv/site
address: 0.0.0.0:8443
nonsense_field: true
`))
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevelFails(t *testing.T) {
	_, err := Load([]byte(`
basefolder: /srv/site
address: 0.0.0.0:8443
log_level: verbose
`))
	assert.Error(t, err)
}
