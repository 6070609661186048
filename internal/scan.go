package internal

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// MediaCategory is the recognized kind of a candidate file, derived from
// its extension alone.
type MediaCategory int

const (
	CategoryUnrecognized MediaCategory = iota
	CategoryPhoto
	CategoryRaw
	CategoryVideo
	CategorySidecar
)

func (c MediaCategory) String() string {
	switch c {
	case CategoryPhoto:
		return "photo"
	case CategoryRaw:
		return "raw"
	case CategoryVideo:
		return "video"
	case CategorySidecar:
		return "sidecar"
	default:
		return "unrecognized"
	}
}

// extensionCategories is the fixed allowlist. Anything absent here is
// skipped without ever being opened.
var extensionCategories = map[string]MediaCategory{
	"heic": CategoryPhoto,
	"heif": CategoryPhoto,
	"jpeg": CategoryPhoto,
	"jpg":  CategoryPhoto,
	"png":  CategoryPhoto,
	"tiff": CategoryPhoto,
	"tif":  CategoryPhoto,
	"webp": CategoryPhoto,
	"bmp":  CategoryPhoto,
	"gif":  CategoryPhoto,
	"avif": CategoryPhoto,
	"cr2":  CategoryRaw,
	"cr3":  CategoryRaw,
	"nef":  CategoryRaw,
	"arw":  CategoryRaw,
	"raf":  CategoryRaw,
	"rw2":  CategoryRaw,
	"dng":  CategoryRaw,
	"orf":  CategoryRaw,
	"pef":  CategoryRaw,
	"srw":  CategoryRaw,
	"3fr":  CategoryRaw,
	"mov":  CategoryVideo,
	"mp4":  CategoryVideo,
	"m4v":  CategoryVideo,
	"avi":  CategoryVideo,
	"mkv":  CategoryVideo,
	"3gp":  CategoryVideo,
	"aae":  CategorySidecar,
}

// Classify maps an extension (with or without leading dot, any case) to a
// media category.
func Classify(ext string) MediaCategory {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return extensionCategories[ext]
}

// CandidateFile is a read-only view of one file found under the source tree.
type CandidateFile struct {
	Path string // absolute source path
	Size int64
	Ext  string // lowercased, no dot; empty when the name has none
}

// SourceGroup returns the filename stem shared by related files (a photo,
// its Live-Photo movie, its edit sidecar). Descriptive metadata only.
func SourceGroup(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return stem
}

// DiscoverFiles walks the source tree and returns every regular file,
// sorted by path so that plans are reproducible run to run.
func DiscoverFiles(source string) ([]CandidateFile, error) {
	var (
		mu    sync.Mutex
		files []CandidateFile
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it, keep walking.
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		mu.Lock()
		files = append(files, CandidateFile{Path: abs, Size: info.Size(), Ext: ext})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning %s: %w", source, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
