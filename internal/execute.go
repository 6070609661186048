package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Executor replays a Plan's operations against the filesystem. Each
// operation is made durable (atomic rename, then manifest write) before
// the next one starts, so a crash never leaves a half-imported file that
// a manifest claims to own.
type Executor struct {
	store    *Store
	index    *DedupIndex
	move     bool
	log      *log.Logger
	now      func() time.Time
	transfer func(src, dest string) (int64, error)

	// OnOp, when set, is invoked after every operation with the error that
	// failed it, or nil. The presentation layer renders these events.
	OnOp func(op PlannedOperation, err error)
}

// NewExecutor creates an Executor bound to the store and index the plan
// was built against.
func NewExecutor(store *Store, index *DedupIndex, move bool, logger *log.Logger) *Executor {
	return &Executor{
		store:    store,
		index:    index,
		move:     move,
		log:      logger,
		now:      time.Now,
		transfer: copyFileAtomic,
	}
}

// Run performs every operation in plan order. Per-file failures are
// counted and skipped; destination exhaustion aborts the remaining
// operations with a terminal error naming the completed count.
func (e *Executor) Run(plan *Plan) (Summary, error) {
	var sum Summary
	completed := 0

	for _, op := range plan.Ops {
		if op.Category == OpSkip || op.Filename == "" {
			// Nothing to write: unrecognized input, or content already
			// quarantined under the same name.
			sum.count(op.Category)
			e.report(op, nil)
			continue
		}

		dest := filepath.Join(e.store.Root(), op.Folder, op.Filename)
		n, err := e.transfer(op.Source, dest)
		if err != nil {
			if IsDiskFull(err) {
				return sum, &ProcessError{
					Path:     dest,
					Category: ErrorCategoryExhausted,
					Err:      fmt.Errorf("target disk full, aborted after %d operations: %w", completed, err),
				}
			}
			if IsVanished(err) {
				e.log.Warn("source file disappeared", "path", op.Source)
				sum.Failed++
				e.report(op, err)
				continue
			}
			if op.Category == OpCorrupt {
				// Quarantine is best effort; the file was already counted.
				e.log.Warn("failed to quarantine file", "path", op.Source, "err", err)
				sum.count(OpCorrupt)
				e.report(op, err)
				continue
			}
			e.log.Warn("transfer failed", "path", op.Source, "err", err)
			sum.Failed++
			e.report(op, err)
			continue
		}

		rec := op.Record
		rec.ImportedAt = e.now().UTC().Format(time.RFC3339)
		if err := e.store.Record(op.Folder, op.Filename, rec); err != nil {
			// The copied file must not outlive a failed manifest write, or
			// the index rebuilt next run would disagree with the tree.
			os.Remove(dest)
			if IsDiskFull(err) {
				return sum, &ProcessError{
					Path:     dest,
					Category: ErrorCategoryExhausted,
					Err:      fmt.Errorf("target disk full, aborted after %d operations: %w", completed, err),
				}
			}
			return sum, fmt.Errorf("aborted after %d operations: %w", completed, err)
		}
		e.index.Insert(op.Digest, IndexEntry{Folder: op.Folder, Filename: op.Filename})

		if e.move && op.Category != OpCorrupt {
			e.removeSourceSafely(op.Source, dest)
		}

		sum.count(op.Category)
		sum.Bytes += n
		completed++
		e.report(op, nil)
	}
	return sum, nil
}

func (e *Executor) report(op PlannedOperation, err error) {
	if e.OnOp != nil {
		e.OnOp(op, err)
	}
}

// removeSourceSafely deletes the source of a move only after verifying
// the destination holds the same number of bytes.
func (e *Executor) removeSourceSafely(src, dest string) {
	destInfo, err := os.Stat(dest)
	if err != nil {
		e.log.Warn("dest verification failed, source preserved", "path", src, "err", err)
		return
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		e.log.Warn("source stat failed, source preserved", "path", src, "err", err)
		return
	}
	if destInfo.Size() != srcInfo.Size() {
		e.log.Warn("size mismatch after copy, source preserved", "path", src)
		return
	}
	if err := os.Remove(src); err != nil {
		e.log.Warn("failed to remove source", "path", src, "err", err)
	}
}

// copyFileAtomic copies a file via a temporary sibling and an atomic
// rename. A partially written destination is never visible under its
// final name; on any failure the temporary file is removed.
func copyFileAtomic(src, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}
