package cacheinfra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"UserProfile", "user_profile"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"user::42", "user_42"},
		{"user1", "user_1"},
		{"  spaced out  ", "spaced_out"},
		{"café", "caf"},
		{"a/b\\c", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SnakeCase(tt.in))
		})
	}
}

func TestFileName(t *testing.T) {
	name := FileName("UserProfile::42", ".cache")

	assert.True(t, strings.HasPrefix(name, "user_profile_42-"), name)
	assert.True(t, strings.HasSuffix(name, ".cache"), name)
	assert.Equal(t, name, FileName("UserProfile::42", ".cache"), "names are deterministic")
}

func TestFileName_DistinctKeysWithSameSnakeForm(t *testing.T) {
	a := FileName("user::42", ".cache")
	b := FileName("user--42", ".cache")

	assert.NotEqual(t, a, b)
}

func TestFileName_Limits(t *testing.T) {
	long := FileName(strings.Repeat("segment", 40), ".bin")
	readable := strings.SplitN(long, "-", 2)[0]
	assert.LessOrEqual(t, len(readable), maxReadableName)

	onlyPunctuation := FileName("::", ".bin")
	assert.False(t, strings.HasPrefix(onlyPunctuation, "-"))
	assert.True(t, strings.HasSuffix(onlyPunctuation, ".bin"))
}
