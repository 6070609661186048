package internal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	writeFile(t, path, "hello world")

	digest, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
}

func TestHashFileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	writeFile(t, path, "")

	digest, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.jpg"))
	require.Error(t, err)
	assert.True(t, IsVanished(err))
}

func TestHashFileStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	// Larger than one hash chunk so the streaming path is exercised.
	data := make([]byte, 3*hashChunkSize+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	writeFile(t, path, string(data))

	first, err := HashFile(path)
	require.NoError(t, err)
	second, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}
