package keywords

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/reader/internal/keyword"
)

func TestReadInput(t *testing.T) {
	t.Parallel()

	got, err := readInput(strings.NewReader("from stdin"), nil, "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	path := filepath.Join(t.TempDir(), "post.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))
	got, err = readInput(nil, []string{"ignored"}, path)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	got, err = readInput(nil, []string{"go", "generics"}, "")
	require.NoError(t, err)
	assert.Equal(t, "go generics", got)

	_, err = readInput(nil, nil, "")
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestByWeight(t *testing.T) {
	t.Parallel()

	got := byWeight(keyword.Weights{"b": 0.25, "a": 0.25, "c": 0.5})
	assert.Equal(t, []keyword.Keyword{
		{Word: "c", Weight: 0.5},
		{Word: "a", Weight: 0.25},
		{Word: "b", Weight: 0.25},
	}, got)
}
