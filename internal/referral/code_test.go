package referral

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeFormat(t *testing.T) {
	code, err := GenerateCode("KS4")
	require.NoError(t, err)
	require.Len(t, code, 9)
	assert.True(t, strings.HasPrefix(code, "KS4"))
	for _, c := range code[3:] {
		assert.Contains(t, codeAlphabet, string(c))
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateCode("KS4")
		require.NoError(t, err)
		seen[code] = true
	}
	// 100 draws from a 36^6 space colliding would point at a broken generator
	assert.Greater(t, len(seen), 95)
}
