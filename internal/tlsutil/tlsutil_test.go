package tlsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromCertificate_MissingFilesFails(t *testing.T) {
	_, err := FromCertificate("/nonexistent/cert.pem", "/nonexistent/key.pem")
	assert.Error(t, err)
}

func TestFromAutocert_SetsALPNProtocols(t *testing.T) {
	cfg := FromAutocert("example.com", t.TempDir())
	assert.Equal(t, []string{"h2", "http/1.1", "http/1.0"}, cfg.NextProtos)
}
