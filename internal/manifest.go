package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/charmbracelet/log"
)

const (
	manifestVersion = 1
	manifestName    = ".manifest.json"
)

// ErrManifestVersion marks a manifest written by a newer revision of the
// tool. Such manifests are rejected rather than silently misread.
var ErrManifestVersion = errors.New("unsupported manifest version")

// ManifestRecord describes one organized file, keyed by its final filename
// within its folder.
type ManifestRecord struct {
	Sha256        string `json:"sha256,omitempty"`
	OriginalPath  string `json:"original_path"`
	OriginalName  string `json:"original_name"`
	DateSource    string `json:"date_source,omitempty"`
	SourceGroup   string `json:"source_group,omitempty"`
	ImportedAt    string `json:"imported_at"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	Error         string `json:"error,omitempty"` // corrupt-folder records only
}

// Manifest is the persisted state of a single destination folder.
type Manifest struct {
	Version int                       `json:"version"`
	Files   map[string]ManifestRecord `json:"files"`
}

func newManifest() *Manifest {
	return &Manifest{Version: manifestVersion, Files: make(map[string]ManifestRecord)}
}

// Store holds every per-folder manifest under the target tree in memory and
// persists them one folder at a time. Folder keys are relative to the
// target root ("2024/01", "undated", ...).
type Store struct {
	root    string
	mu      sync.Mutex
	folders map[string]*Manifest
	log     *log.Logger
}

// NewStore discovers and loads every manifest under target. A target that
// does not exist yet yields an empty store. A manifest with an unknown
// version aborts loading with ErrManifestVersion.
func NewStore(target string, logger *log.Logger) (*Store, error) {
	s := &Store{root: target, folders: make(map[string]*Manifest), log: logger}

	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	var (
		mu       sync.Mutex
		paths    []string
		walkConf = fastwalk.Config{Follow: false}
	)
	err := fastwalk.Walk(&walkConf, target, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() == manifestName {
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning target %s: %w", target, err)
	}

	for _, path := range paths {
		rel, err := filepath.Rel(target, filepath.Dir(path))
		if err != nil {
			continue
		}
		m, err := loadManifest(path, logger)
		if err != nil {
			return nil, err
		}
		s.folders[rel] = m
	}
	return s, nil
}

func loadManifest(path string, logger *log.Logger) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		// A mangled manifest means its folder re-earns entries as files are
		// re-imported; the files themselves are untouched.
		logger.Warn("corrupt manifest, starting fresh", "path", path, "err", err)
		return newManifest(), nil
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: %d in %s (this tool reads version %d)",
			ErrManifestVersion, m.Version, path, manifestVersion)
	}
	if m.Files == nil {
		m.Files = make(map[string]ManifestRecord)
	}
	return &m, nil
}

// Root returns the target root this store was loaded from.
func (s *Store) Root() string {
	return s.root
}

// Folder returns the in-memory manifest for a folder, creating an empty one
// on first use.
func (s *Store) Folder(rel string) *Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.folders[rel]
	if !ok {
		m = newManifest()
		s.folders[rel] = m
	}
	return m
}

// Folders returns the keys of all loaded folders.
func (s *Store) Folders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.folders))
	for k := range s.folders {
		keys = append(keys, k)
	}
	return keys
}

// Record merges a record into a folder's manifest and persists the whole
// folder durably before returning. The write goes to a temporary file in
// the same folder followed by an atomic rename, so a reader never observes
// a half-written manifest.
func (s *Store) Record(rel, filename string, rec ManifestRecord) error {
	m := s.Folder(rel)

	s.mu.Lock()
	m.Files[filename] = rec
	data, err := json.MarshalIndent(m, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest for %s: %w", rel, err)
	}

	dir := filepath.Join(s.root, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, manifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest %s: %w", path, err)
	}
	return nil
}
