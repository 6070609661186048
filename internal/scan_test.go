package internal

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		ext  string
		want MediaCategory
	}{
		{"jpg", CategoryPhoto},
		{"jpeg", CategoryPhoto},
		{"heic", CategoryPhoto},
		{"heif", CategoryPhoto},
		{"png", CategoryPhoto},
		{"tiff", CategoryPhoto},
		{"tif", CategoryPhoto},
		{"webp", CategoryPhoto},
		{"bmp", CategoryPhoto},
		{"gif", CategoryPhoto},
		{"avif", CategoryPhoto},
		{"cr2", CategoryRaw},
		{"cr3", CategoryRaw},
		{"nef", CategoryRaw},
		{"arw", CategoryRaw},
		{"raf", CategoryRaw},
		{"rw2", CategoryRaw},
		{"dng", CategoryRaw},
		{"orf", CategoryRaw},
		{"pef", CategoryRaw},
		{"srw", CategoryRaw},
		{"3fr", CategoryRaw},
		{"mov", CategoryVideo},
		{"mp4", CategoryVideo},
		{"m4v", CategoryVideo},
		{"avi", CategoryVideo},
		{"mkv", CategoryVideo},
		{"3gp", CategoryVideo},
		{"aae", CategorySidecar},
		{"txt", CategoryUnrecognized},
		{"pdf", CategoryUnrecognized},
		{"", CategoryUnrecognized},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.ext), "ext %q", tc.ext)
	}
}

func TestClassifyNormalizes(t *testing.T) {
	assert.Equal(t, CategoryPhoto, Classify(".JPG"))
	assert.Equal(t, CategoryPhoto, Classify("Jpeg"))
	assert.Equal(t, CategoryVideo, Classify(".MOV"))
	assert.Equal(t, CategoryUnrecognized, Classify("."))
}

func TestMediaCategoryString(t *testing.T) {
	assert.Equal(t, "photo", CategoryPhoto.String())
	assert.Equal(t, "raw", CategoryRaw.String())
	assert.Equal(t, "video", CategoryVideo.String())
	assert.Equal(t, "sidecar", CategorySidecar.String())
	assert.Equal(t, "unrecognized", CategoryUnrecognized.String())
}

func TestSourceGroup(t *testing.T) {
	assert.Equal(t, "IMG_0042", SourceGroup("IMG_0042.HEIC"))
	assert.Equal(t, "IMG_0042", SourceGroup("IMG_0042.mov"))
	assert.Equal(t, "IMG_0042", SourceGroup("IMG_0042.aae"))
	assert.Equal(t, "noext", SourceGroup("noext"))
	assert.Equal(t, "a.b", SourceGroup("a.b.jpg"))
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "b.jpg"), "bbb")
	writeFile(t, filepath.Join(dir, "a.JPG"), "aaa")
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	writeFile(t, filepath.Join(dir, "noext"), "x")

	files, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	// Sorted by path, every run.
	assert.True(t, sort.SliceIsSorted(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	}))

	byName := make(map[string]CandidateFile)
	for _, f := range files {
		byName[filepath.Base(f.Path)] = f
	}
	assert.Equal(t, "jpg", byName["a.JPG"].Ext)
	assert.Equal(t, int64(3), byName["a.JPG"].Size)
	assert.Equal(t, "jpg", byName["b.jpg"].Ext)
	assert.Equal(t, "txt", byName["notes.txt"].Ext)
	assert.Equal(t, "", byName["noext"].Ext)
}

func TestDiscoverFilesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty.jpg"), 0o755))
	writeFile(t, filepath.Join(dir, "real.jpg"), "data")

	files, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "real.jpg", filepath.Base(files[0].Path))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
