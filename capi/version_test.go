package capi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"v1.2.0", Version{1, 2, 0, "v1.2.0"}},
		{"1.1.3", Version{1, 1, 3, "1.1.3"}},
		{"v0.8.0-1014-gf41c0e9a4e", Version{0, 8, 0, "v0.8.0-1014-gf41c0e9a4e"}},
		{"v1.4.0-memapi", Version{1, 4, 0, "v1.4.0-memapi"}},
		{"v1.3.1+dev", Version{1, 3, 1, "v1.3.1+dev"}},
		{"garbage", Version{VersionStr: "garbage"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVersion(tt.in))
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 1}
	assert.True(t, v.AtLeast(1, 2, 1))
	assert.True(t, v.AtLeast(1, 2, 0))
	assert.True(t, v.AtLeast(1, 1, 9))
	assert.True(t, v.AtLeast(0, 10, 0))
	assert.False(t, v.AtLeast(1, 2, 2))
	assert.False(t, v.AtLeast(1, 3, 0))
	assert.False(t, v.AtLeast(2, 0, 0))

	assert.Equal(t, "1.2.1", v.String())
	assert.Equal(t, "v1.2.1", ParseVersion("v1.2.1").String())
}
