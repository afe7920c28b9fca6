package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	service := NewReferenceService()

	ref, err := service.Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "AVY-"))
	assert.Len(t, ref, len("AVY-")+6)
}

func TestGenerate_UsesSafeAlphabetOnly(t *testing.T) {
	service := NewReferenceService()

	for i := 0; i < 100; i++ {
		ref, err := service.Generate()
		require.NoError(t, err)

		suffix := strings.TrimPrefix(ref, "AVY-")
		for _, c := range suffix {
			assert.Contains(t, referenceAlphabet, string(c),
				"reference %s contains character outside safe alphabet", ref)
		}
		// Ambiguous characters never appear
		assert.NotContains(t, suffix, "0")
		assert.NotContains(t, suffix, "O")
		assert.NotContains(t, suffix, "1")
		assert.NotContains(t, suffix, "I")
	}
}

func TestGenerate_NoObviousCollisions(t *testing.T) {
	service := NewReferenceService()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref, err := service.Generate()
		require.NoError(t, err)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}
