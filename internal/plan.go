package internal

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OpCategory is the planned outcome for one candidate file.
type OpCategory string

const (
	OpImport    OpCategory = "import"
	OpDuplicate OpCategory = "duplicate"
	OpUndated   OpCategory = "undated"
	OpCorrupt   OpCategory = "corrupt"
	OpSkip      OpCategory = "skip"
)

// Special destination folders alongside the YYYY/MM tree.
const (
	folderUndated    = "undated"
	folderDuplicates = "duplicates"
	folderCorrupt    = "corrupt"
)

// PlannedOperation is one decided transfer. It carries everything the
// executor needs; the planner itself never touches the filesystem.
type PlannedOperation struct {
	Category OpCategory
	Source   string
	Folder   string // destination folder relative to target; empty when nothing will be written
	Filename string
	Digest   string
	Size     int64
	Reason   string // human-readable, for skip and corrupt
	Existing string // duplicate: relative path of the first recorded occurrence
	Record   ManifestRecord
}

// Dest returns the destination path relative to the target root, or ""
// when the operation writes nothing.
func (op PlannedOperation) Dest() string {
	if op.Filename == "" {
		return ""
	}
	return filepath.Join(op.Folder, op.Filename)
}

// Plan is the full, side-effect-free set of decided operations for a run.
type Plan struct {
	Source string
	Target string
	Ops    []PlannedOperation
}

// Summary accumulates per-category counters.
type Summary struct {
	Imported   int
	Duplicates int
	Corrupt    int
	Undated    int
	Skipped    int
	Failed     int
	Bytes      int64 // bytes written to the target
}

func (s *Summary) count(cat OpCategory) {
	switch cat {
	case OpImport:
		s.Imported++
	case OpDuplicate:
		s.Duplicates++
	case OpCorrupt:
		s.Corrupt++
	case OpUndated:
		s.Undated++
	case OpSkip:
		s.Skipped++
	}
}

func (s Summary) String() string {
	line := fmt.Sprintf("%d imported, %d duplicates, %d corrupt, %d undated, %d skipped",
		s.Imported, s.Duplicates, s.Corrupt, s.Undated, s.Skipped)
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	return line
}

// Planner decides destinations and collision-free names. It reads the
// dedup index and the loaded manifests, and tracks its own in-progress
// name and digest assignments so that a plan is internally consistent
// before anything is executed.
type Planner struct {
	store   *Store
	index   *DedupIndex
	planned map[string]IndexEntry        // digests accepted earlier in this plan
	names   map[string]map[string]string // folder -> filename -> digest
}

// NewPlanner creates a Planner over the loaded store and index.
func NewPlanner(store *Store, index *DedupIndex) *Planner {
	return &Planner{
		store:   store,
		index:   index,
		planned: make(map[string]IndexEntry),
		names:   make(map[string]map[string]string),
	}
}

// PlanCandidate decides the operation for one classified candidate.
// digest is empty and hashErr non-nil when the file could not be read.
func (p *Planner) PlanCandidate(c CandidateFile, digest string, hashErr error, meta CaptureMetadata) PlannedOperation {
	name := filepath.Base(c.Path)
	group := SourceGroup(name)

	if Classify(c.Ext) == CategoryUnrecognized {
		reason := fmt.Sprintf(".%s unrecognized", c.Ext)
		if c.Ext == "" {
			reason = "no extension"
		}
		return PlannedOperation{Category: OpSkip, Source: c.Path, Reason: reason}
	}

	if hashErr != nil {
		return p.planCorrupt(c, name, group, hashErr)
	}

	if existing, ok := p.lookup(digest); ok {
		return p.planDuplicate(c, name, group, digest, existing)
	}

	if meta.Found() {
		return p.planDated(c, name, group, digest, meta)
	}
	return p.planUndated(c, name, group, digest)
}

func (p *Planner) planDated(c CandidateFile, name, group, digest string, meta CaptureMetadata) PlannedOperation {
	folder := meta.TakenAt.Format("2006/01")
	stem := meta.TakenAt.Format("20060102_150405")

	final, same := p.resolveName(folder, stem, c.Ext, digest)
	if same {
		// Identical content already holds this name: converged.
		return p.reclassifiedDuplicate(c, digest, IndexEntry{Folder: folder, Filename: final})
	}
	p.claim(folder, final, digest)

	return PlannedOperation{
		Category: OpImport,
		Source:   c.Path,
		Folder:   folder,
		Filename: final,
		Digest:   digest,
		Size:     c.Size,
		Record: ManifestRecord{
			Sha256:        digest,
			OriginalPath:  c.Path,
			OriginalName:  name,
			DateSource:    meta.DateSource,
			SourceGroup:   group,
			FileSizeBytes: c.Size,
		},
	}
}

func (p *Planner) planUndated(c CandidateFile, name, group, digest string) PlannedOperation {
	// Original stems collide constantly across devices, so the hash prefix
	// is applied unconditionally.
	stem := strings.TrimSuffix(name, filepath.Ext(name)) + "_" + digest[:4]

	final, same := p.resolveName(folderUndated, stem, c.Ext, digest)
	if same {
		return p.reclassifiedDuplicate(c, digest, IndexEntry{Folder: folderUndated, Filename: final})
	}
	p.claim(folderUndated, final, digest)

	return PlannedOperation{
		Category: OpUndated,
		Source:   c.Path,
		Folder:   folderUndated,
		Filename: final,
		Digest:   digest,
		Size:     c.Size,
		Record: ManifestRecord{
			Sha256:        digest,
			OriginalPath:  c.Path,
			OriginalName:  name,
			SourceGroup:   group,
			FileSizeBytes: c.Size,
		},
	}
}

func (p *Planner) planDuplicate(c CandidateFile, name, group, digest string, existing IndexEntry) PlannedOperation {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	final, same := p.resolveName(folderDuplicates, stem, c.Ext, digest)
	if same {
		// Same content already quarantined under this name: nothing to write.
		return PlannedOperation{
			Category: OpDuplicate,
			Source:   c.Path,
			Digest:   digest,
			Size:     c.Size,
			Existing: existing.Rel(),
		}
	}
	p.claim(folderDuplicates, final, digest)

	return PlannedOperation{
		Category: OpDuplicate,
		Source:   c.Path,
		Folder:   folderDuplicates,
		Filename: final,
		Digest:   digest,
		Size:     c.Size,
		Existing: existing.Rel(),
		Record: ManifestRecord{
			Sha256:        digest,
			OriginalPath:  c.Path,
			OriginalName:  name,
			SourceGroup:   group,
			FileSizeBytes: c.Size,
		},
	}
}

func (p *Planner) planCorrupt(c CandidateFile, name, group string, hashErr error) PlannedOperation {
	// Digestless records can never converge by content, so an already
	// quarantined file is matched by origin instead; otherwise every
	// re-run would stack another copy of the same broken file.
	for _, rec := range p.store.Folder(folderCorrupt).Files {
		if rec.Sha256 == "" && rec.OriginalPath == c.Path && rec.FileSizeBytes == c.Size {
			return PlannedOperation{
				Category: OpCorrupt,
				Source:   c.Path,
				Size:     c.Size,
				Reason:   hashErr.Error(),
			}
		}
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))

	final, _ := p.resolveName(folderCorrupt, stem, c.Ext, "")
	p.claim(folderCorrupt, final, "")

	return PlannedOperation{
		Category: OpCorrupt,
		Source:   c.Path,
		Folder:   folderCorrupt,
		Filename: final,
		Size:     c.Size,
		Reason:   hashErr.Error(),
		Record: ManifestRecord{
			OriginalPath:  c.Path,
			OriginalName:  name,
			SourceGroup:   group,
			FileSizeBytes: c.Size,
			Error:         hashErr.Error(),
		},
	}
}

func (p *Planner) reclassifiedDuplicate(c CandidateFile, digest string, existing IndexEntry) PlannedOperation {
	return PlannedOperation{
		Category: OpDuplicate,
		Source:   c.Path,
		Digest:   digest,
		Size:     c.Size,
		Existing: existing.Rel(),
	}
}

// lookup consults digests accepted earlier in this plan before the
// cross-run index, so within-run duplicates are caught too.
func (p *Planner) lookup(digest string) (IndexEntry, bool) {
	if e, ok := p.planned[digest]; ok {
		return e, true
	}
	return p.index.Lookup(digest)
}

// claim records a name assignment so no later candidate can take it.
func (p *Planner) claim(folder, name, digest string) {
	p.folderNames(folder)[name] = digest
	if digest != "" {
		if _, ok := p.planned[digest]; !ok {
			p.planned[digest] = IndexEntry{Folder: folder, Filename: name}
		}
	}
}

// folderNames returns the filename->digest view of a folder, seeded from
// its loaded manifest on first use.
func (p *Planner) folderNames(folder string) map[string]string {
	if m, ok := p.names[folder]; ok {
		return m
	}
	m := make(map[string]string)
	for name, rec := range p.store.Folder(folder).Files {
		m[name] = rec.Sha256
	}
	p.names[folder] = m
	return m
}

// resolveName finds a collision-free filename within a folder. The suffix
// is the leading hex of the candidate's own digest, lengthened two
// characters at a time on repeated collisions; digestless candidates fall
// back to a numeric suffix. same is true when the name is already held by
// identical content.
func (p *Planner) resolveName(folder, stem, ext, digest string) (name string, same bool) {
	taken := p.folderNames(folder)

	try := func(cand string) (string, bool, bool) {
		d, exists := taken[cand]
		if !exists {
			return cand, false, true
		}
		if digest != "" && d == digest {
			return cand, true, true
		}
		return "", false, false
	}

	if n, s, ok := try(joinName(stem, ext)); ok {
		return n, s
	}
	for l := 4; l <= len(digest); l += 2 {
		if n, s, ok := try(joinName(stem+"_"+digest[:l], ext)); ok {
			return n, s
		}
	}
	for i := 2; ; i++ {
		if n, s, ok := try(joinName(fmt.Sprintf("%s_%d", stem, i), ext)); ok {
			return n, s
		}
	}
}

func joinName(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
