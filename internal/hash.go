package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// hashChunkSize bounds how much of a file is held in memory while hashing.
const hashChunkSize = 64 * 1024

// HashFile streams a file through SHA-256 and returns the hex digest.
// Any failure to open or read the file is returned as-is; callers route
// such files to the corrupt category rather than aborting the run.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
