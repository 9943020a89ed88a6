package engine_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luapack/luapack/internal/engine"
)

func TestPayloadPathsAreUnique(t *testing.T) {
	t.Parallel()

	first, err := engine.PayloadPath()
	require.NoError(t, err)
	defer os.Remove(first)

	second, err := engine.PayloadPath()
	require.NoError(t, err)
	defer os.Remove(second)

	// Concurrent builds in one process each get their own payload file.
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, ".lua"))
}
