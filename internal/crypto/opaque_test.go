package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	raw, err := GenerateOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64, "256 bits hex encoded")
}

func TestNoCollisions(t *testing.T) {
	const n = 10000

	raws := make(map[string]struct{}, n)
	hashes := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		raw, err := GenerateOpaqueToken()
		require.NoError(t, err)

		_, seen := raws[raw]
		require.False(t, seen, "raw token collision")
		raws[raw] = struct{}{}

		hash := HashToken(raw)
		_, seen = hashes[hash]
		require.False(t, seen, "token hash collision")
		hashes[hash] = struct{}{}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	raw, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.Equal(t, HashToken(raw), HashToken(raw))
	assert.NotEqual(t, raw, HashToken(raw))
}
