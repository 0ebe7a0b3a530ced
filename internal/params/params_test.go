package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_LayoutWithNoHeadersOrQuery(t *testing.T) {
	got := Build("/a/b", "GET", nil, "")
	assert.Equal(t, []string{"/a/b", "GET", "", "", ""}, got)
}

func TestBuild_SeparatorsAlwaysPresent(t *testing.T) {
	got := Build("/", "POST", map[string][]string{"Accept": {"text/plain"}}, "x=1&y=2")
	assert.Equal(t, []string{"/", "POST", "", "Accept=text/plain", "", "x=1", "y=2", ""}, got)
}

func TestBuild_HeadersAreSortedAndJoined(t *testing.T) {
	headers := map[string][]string{
		"X-B": {"2"},
		"X-A": {"1a", "1b"},
	}
	got := Build("/x", "GET", headers, "")
	assert.Equal(t, []string{"/x", "GET", "", "X-A=1a, 1b", "X-B=2", "", ""}, got)
}

func TestBuild_DropsHeaderWithInvalidValue(t *testing.T) {
	headers := map[string][]string{"X-Evil": {"a\nb"}}
	got := Build("/x", "GET", headers, "")
	assert.Equal(t, []string{"/x", "GET", "", "", ""}, got)
}

func TestBuild_QueryDropsEmptyEntries(t *testing.T) {
	got := Build("/x", "GET", nil, "a=1&&b=2&")
	assert.Equal(t, []string{"/x", "GET", "", "", "a=1", "b=2", ""}, got)
}
