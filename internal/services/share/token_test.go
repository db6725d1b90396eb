package share

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, tok, 43)
		assert.NoError(t, ValidateToken(tok))
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token generated")
		seen[tok] = struct{}{}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateTokenRandomSourceFailure(t *testing.T) {
	tok, err := generateTokenFrom(failingReader{})
	assert.Empty(t, tok)
	assert.ErrorIs(t, err, xerr.ErrTokenGeneration)
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"empty", "", false},
		{"url safe", "aZ09-_", true},
		{"max length", strings.Repeat("a", MaxTokenLength), true},
		{"too long", strings.Repeat("a", MaxTokenLength+1), false},
		{"wildcard", "abc%", false},
		{"space", "abc def", false},
		{"slash", "abc/def", false},
		{"padding", "abc=", false},
		{"unicode", "abcé", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToken(tt.token)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, xerr.ErrInvalidToken)
			}
		})
	}
}
