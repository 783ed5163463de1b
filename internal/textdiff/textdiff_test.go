package textdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified(t *testing.T) {
	unified, err := Unified("doc", "Teh quick fox", "The quick fox")
	require.NoError(t, err)
	assert.Contains(t, unified, "--- a/doc")
	assert.Contains(t, unified, "+++ b/doc")
	assert.Contains(t, unified, "-Teh quick fox")
	assert.Contains(t, unified, "+The quick fox")

	added, removed, err := Stat(unified)
	require.NoError(t, err)
	assert.Equal(t, int32(1), added)
	assert.Equal(t, int32(1), removed)
}

func TestUnified_Equal(t *testing.T) {
	unified, err := Unified("doc", "same", "same")
	require.NoError(t, err)
	assert.Empty(t, unified)

	added, removed, err := Stat(unified)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, removed)
}

func TestStat_Addition(t *testing.T) {
	unified, err := Unified("doc", "one\ntwo\n", "one\ntwo\nthree\nfour\n")
	require.NoError(t, err)

	added, removed, err := Stat(unified)
	require.NoError(t, err)
	assert.Equal(t, int32(2), added)
	assert.Equal(t, int32(0), removed)
}
