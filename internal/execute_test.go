package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashOf(t *testing.T, path string) string {
	t.Helper()
	d, err := HashFile(path)
	require.NoError(t, err)
	return d
}

func TestExecutorImportsAndRecords(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	src := filepath.Join(source, "photo.jpg")
	writeFile(t, src, "imagedata")

	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)
	planner := NewPlanner(store, index)

	op := planner.PlanCandidate(CandidateFile{Path: src, Size: 9, Ext: "jpg"},
		hashOf(t, src), nil, datedMeta())
	require.Equal(t, OpImport, op.Category)

	ex := NewExecutor(store, index, false, discardLogger())
	ex.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }

	sum, err := ex.Run(&Plan{Source: source, Target: target, Ops: []PlannedOperation{op}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Imported)
	assert.Equal(t, int64(9), sum.Bytes)

	dest := filepath.Join(target, "2024/03", "20240315_143000.jpg")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "imagedata", string(data))

	// Manifest is already durable and carries the execution stamp.
	reloaded, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	rec := reloaded.Folder("2024/03").Files["20240315_143000.jpg"]
	assert.Equal(t, hashOf(t, src), rec.Sha256)
	assert.Equal(t, "2026-08-31T10:00:00Z", rec.ImportedAt)

	// The digest is visible to later lookups.
	e, ok := index.Lookup(rec.Sha256)
	require.True(t, ok)
	assert.Equal(t, "2024/03", e.Folder)

	// Copy mode preserves the source.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestExecutorMoveRemovesSource(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	src := filepath.Join(source, "clip.mp4")
	writeFile(t, src, "videodata")

	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)
	op := NewPlanner(store, index).PlanCandidate(
		CandidateFile{Path: src, Size: 9, Ext: "mp4"}, hashOf(t, src), nil, datedMeta())

	ex := NewExecutor(store, index, true, discardLogger())
	sum, err := ex.Run(&Plan{Target: target, Ops: []PlannedOperation{op}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Imported)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(target, op.Dest()))
	assert.NoError(t, err)
}

func TestExecutorQuarantinesCorrupt(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	src := filepath.Join(source, "broken.nef")
	writeFile(t, src, "partial")

	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)
	op := NewPlanner(store, index).PlanCandidate(
		CandidateFile{Path: src, Size: 7, Ext: "nef"}, "", assert.AnError, CaptureMetadata{})
	require.Equal(t, OpCorrupt, op.Category)

	// Even in move mode the unreadable original stays put.
	ex := NewExecutor(store, index, true, discardLogger())
	sum, err := ex.Run(&Plan{Target: target, Ops: []PlannedOperation{op}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Corrupt)

	_, err = os.Stat(src)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(target, folderCorrupt, "broken.nef"))
	assert.NoError(t, err)

	rec := store.Folder(folderCorrupt).Files["broken.nef"]
	assert.Empty(t, rec.Sha256)
	assert.Equal(t, assert.AnError.Error(), rec.Error)
}

func TestExecutorVanishedSourceContinues(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	gone := filepath.Join(source, "gone.jpg")
	kept := filepath.Join(source, "kept.jpg")
	writeFile(t, kept, "still here")

	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)
	planner := NewPlanner(store, index)

	ops := []PlannedOperation{
		planner.PlanCandidate(CandidateFile{Path: gone, Size: 1, Ext: "jpg"},
			fakeDigest("99"), nil, CaptureMetadata{}),
		planner.PlanCandidate(CandidateFile{Path: kept, Size: 10, Ext: "jpg"},
			hashOf(t, kept), nil, CaptureMetadata{}),
	}

	ex := NewExecutor(store, index, false, discardLogger())
	sum, err := ex.Run(&Plan{Target: target, Ops: ops})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Undated)

	// The vanished file left no manifest record.
	_, recorded := store.Folder(folderUndated).Files[ops[0].Filename]
	assert.False(t, recorded)
}

func TestExecutorNoWriteOps(t *testing.T) {
	target := t.TempDir()
	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)

	ops := []PlannedOperation{
		{Category: OpSkip, Source: "/x/notes.txt", Reason: ".txt unrecognized"},
		{Category: OpDuplicate, Source: "/x/again.jpg", Digest: fakeDigest("77"), Existing: "2024/01/a.jpg"},
	}

	var seen []OpCategory
	ex := NewExecutor(store, index, false, discardLogger())
	ex.OnOp = func(op PlannedOperation, err error) {
		assert.NoError(t, err)
		seen = append(seen, op.Category)
	}

	sum, err := ex.Run(&Plan{Target: target, Ops: ops})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Duplicates)
	assert.Equal(t, int64(0), sum.Bytes)
	assert.Equal(t, []OpCategory{OpSkip, OpDuplicate}, seen)

	// Nothing was written, not even folders.
	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecutorDiskFullAborts(t *testing.T) {
	source := t.TempDir()
	target := filepath.Join(t.TempDir(), "library")
	for _, f := range []struct{ name, body string }{
		{"a.jpg", "first body"},
		{"b.jpg", "second body"},
		{"c.jpg", "third body"},
	} {
		writeFile(t, filepath.Join(source, f.name), f.body)
	}

	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)
	planner := NewPlanner(store, index)

	var ops []PlannedOperation
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		src := filepath.Join(source, name)
		ops = append(ops, planner.PlanCandidate(
			CandidateFile{Path: src, Size: 10, Ext: "jpg"},
			hashOf(t, src), nil, CaptureMetadata{}))
	}

	// The destination fills up after the first transfer.
	calls := 0
	ex := NewExecutor(store, index, false, discardLogger())
	ex.transfer = func(src, dest string) (int64, error) {
		calls++
		if calls > 1 {
			return 0, &os.PathError{Op: "write", Path: dest, Err: syscall.ENOSPC}
		}
		return copyFileAtomic(src, dest)
	}

	sum, err := ex.Run(&Plan{Source: source, Target: target, Ops: ops})
	require.Error(t, err)

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, ErrorCategoryExhausted, procErr.Category)
	assert.Contains(t, err.Error(), "aborted after 1 operations")

	// The abort is immediate: the third operation was never attempted.
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, sum.Undated)

	// The completed operation is durable and no partial files remain.
	for _, rel := range snapshotTree(t, target) {
		assert.False(t, strings.HasSuffix(rel, ".tmp"), "leftover temp file %s", rel)
	}
	assert.FileExists(t, filepath.Join(target, ops[0].Dest()))

	// After freeing space, a fresh plan covers exactly the remainder.
	engine := newTestEngine(t, source, target)
	_, resumed, err := engine.BuildPlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resumed.Undated)
	assert.Equal(t, 1, resumed.Duplicates)
}

func TestExecutorManifestFailureRemovesCopiedFile(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	src := filepath.Join(source, "a.jpg")
	writeFile(t, src, "alpha")

	store, err := NewStore(target, discardLogger())
	require.NoError(t, err)
	index := BuildIndex(store)
	op := NewPlanner(store, index).PlanCandidate(
		CandidateFile{Path: src, Size: 5, Ext: "jpg"}, hashOf(t, src), nil, CaptureMetadata{})

	// Block the manifest persist by occupying its temp path.
	tmp := filepath.Join(target, folderUndated, manifestName+".tmp")
	require.NoError(t, os.MkdirAll(tmp, 0o755))

	ex := NewExecutor(store, index, false, discardLogger())
	sum, err := ex.Run(&Plan{Target: target, Ops: []PlannedOperation{op}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aborted after 0 operations")
	assert.Equal(t, 0, sum.Undated)

	// A file the manifests do not own must not survive the abort.
	_, err = os.Stat(filepath.Join(target, op.Dest()))
	assert.True(t, os.IsNotExist(err))
}

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.bin")
	dest := filepath.Join(dir, "nested", "out.bin")
	writeFile(t, src, "payload")

	n, err := copyFileAtomic(src, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCopyFileAtomicMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := copyFileAtomic(filepath.Join(dir, "nope"), filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.True(t, IsVanished(err))
}
