package fsutil_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/glgrid/internal/fsutil"
	"github.com/vk/glgrid/internal/testutil"
)

func TestFind(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{
		"main.hcl":           "",
		"textures/wood.png":  "",
		"nested/deep/a.hcl":  "",
		"nested/notes.txt":   "",
		".cache/ignored.hcl": "",
	})

	files, err := fsutil.FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "main.hcl"),
		filepath.Join(root, "nested", "deep", "a.hcl"),
	}, files)

	dirs, err := fsutil.FindDirs(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "textures"),
		filepath.Join(root, "nested"),
		filepath.Join(root, "nested", "deep"),
	}, dirs)
}

func TestFind_MissingRoot(t *testing.T) {
	_, err := fsutil.FindFilesByExtension(filepath.Join(t.TempDir(), "missing"), ".hcl")
	require.Error(t, err)

	_, err = fsutil.FindDirs(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestFindFilesByExtension_PanicsOnEmptyExtension(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = fsutil.FindFilesByExtension(t.TempDir(), "")
	})
}
