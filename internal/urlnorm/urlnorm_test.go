package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.com/", "https://example.com"},
		{"http://example.com:80", "http://example.com"},
		{"https://example.com:443/", "https://example.com"},
		{"https://example.com:8443", "https://example.com:8443"},
		{"example.com", "http://example.com"},
		{"http://example.com/npm/", "http://example.com/npm"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "normalizing %q", c.in)
	}
}

func TestNormalize_InvalidURL(t *testing.T) {
	_, err := Normalize("http://")
	assert.Error(t, err)
}
