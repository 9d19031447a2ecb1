package vpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{
			name:     "simple path",
			path:     "logo.png",
			expected: []string{"logo.png"},
		},
		{
			name:     "archive path",
			path:     "archive.zip::logo.png",
			expected: []string{"archive.zip", "logo.png"},
		},
		{
			name:     "nested archive",
			path:     "outer.zip::inner.tar::logo.png",
			expected: []string{"outer.zip", "inner.tar", "logo.png"},
		},
		{
			name:     "container layer path",
			path:     "image.tar::sha256:abc123::etc/logo.png",
			expected: []string{"image.tar", "sha256:abc123", "etc/logo.png"},
		},
		{
			name:     "empty path",
			path:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.path))
		})
	}
}

func TestBuildAndJoin(t *testing.T) {
	assert.Equal(t, "logo.png", Build("logo.png"))
	assert.Equal(t, "archive.zip::logo.png", Build("archive.zip", "logo.png"))
	assert.Equal(t, "outer.zip::inner.tar::logo.png", Build("outer.zip", "inner.tar", "logo.png"))
	assert.Equal(t, "", Build())

	assert.Equal(t, "a.zip::b.png", Join("a.zip", "b.png"))
	assert.Equal(t, Build("a.zip", "b.tar", "c.png"), Join(Join("a.zip", "b.tar"), "c.png"))
}

func TestIsVirtual(t *testing.T) {
	assert.False(t, IsVirtual("plain/logo.png"))
	assert.True(t, IsVirtual("archive.zip::logo.png"))
	assert.False(t, IsVirtual(""))
}

func TestRootAndDepth(t *testing.T) {
	assert.Equal(t, "image.tar", Root("image.tar::layer::etc/logo.png"))
	assert.Equal(t, "logo.png", Root("logo.png"))

	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("logo.png"))
	assert.Equal(t, 3, Depth("image.tar::layer::etc/logo.png"))
}
