package postprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadLabels verifies label file parsing, including blank lines and
// surrounding whitespace.
func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("unripe\n semi_ripe \n\nripe\noverripe\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"unripe", "semi_ripe", "ripe", "overripe"}, labels)
}

// TestLoadLabelsFailures covers missing and empty files.
func TestLoadLabelsFailures(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o644))
	_, err = LoadLabels(empty)
	assert.Error(t, err)
}
