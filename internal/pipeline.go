package internal

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
)

// Options configures an import run.
type Options struct {
	Source      string
	Target      string
	Workers     int  // hash/metadata pool size; <=0 means NumCPU
	Move        bool // move instead of copy on execute
	UseExifTool bool // consult the exiftool binary for video dates
	Logger      *log.Logger
}

// Engine wires the pipeline together: scan, classify, hash, extract, plan.
// BuildPlan is identical in dry-run and execute mode; Execute replays the
// resulting plan.
type Engine struct {
	opts  Options
	log   *log.Logger
	store *Store
	index *DedupIndex
}

// NewEngine validates options and creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Source == "" || opts.Target == "" {
		return nil, fmt.Errorf("source and target are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Engine{opts: opts, log: opts.Logger}, nil
}

// stageResult carries the output of the parallel read-only stages for one
// candidate.
type stageResult struct {
	digest  string
	hashErr error
	meta    CaptureMetadata
}

// BuildPlan scans the source, loads the target's manifests, runs hashing
// and metadata extraction across a bounded worker pool, and plans every
// candidate in path order. It performs no writes; running it twice over
// unchanged trees yields the same plan.
func (e *Engine) BuildPlan(ctx context.Context) (*Plan, Summary, error) {
	candidates, err := DiscoverFiles(e.opts.Source)
	if err != nil {
		return nil, Summary{}, err
	}
	e.log.Info("scanned source", "files", len(candidates))

	store, err := NewStore(e.opts.Target, e.log)
	if err != nil {
		return nil, Summary{}, err
	}
	e.store = store
	e.index = BuildIndex(store)
	e.log.Info("loaded dedup index", "digests", e.index.Len())

	// Only recognized files are hashed or opened at all.
	var recognized []int
	for i, c := range candidates {
		if Classify(c.Ext) != CategoryUnrecognized {
			recognized = append(recognized, i)
		}
	}

	results := make([]stageResult, len(candidates))
	extractor := NewExtractor(e.opts.UseExifTool, e.log)
	defer extractor.Close()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := candidates[i]
				digest, err := HashFile(c.Path)
				if err != nil {
					results[i] = stageResult{hashErr: err}
					continue
				}
				results[i] = stageResult{digest: digest, meta: extractor.Extract(c.Path)}
			}
		}()
	}

	var cancelled bool
	for _, i := range recognized {
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = true
		}
		if cancelled {
			break
		}
	}
	close(jobs)
	wg.Wait()
	if cancelled {
		return nil, Summary{}, ctx.Err()
	}

	// Planning is serial and ordered: the plan must come out the same
	// whether or not the hashing above raced.
	planner := NewPlanner(store, e.index)
	plan := &Plan{Source: e.opts.Source, Target: e.opts.Target}
	var sum Summary
	for i, c := range candidates {
		r := results[i]
		op := planner.PlanCandidate(c, r.digest, r.hashErr, r.meta)
		plan.Ops = append(plan.Ops, op)
		sum.count(op.Category)
	}
	return plan, sum, nil
}

// Execute replays a plan built by this engine. onOp receives every
// operation outcome as it becomes durable.
func (e *Engine) Execute(plan *Plan, onOp func(PlannedOperation, error)) (Summary, error) {
	if e.store == nil {
		return Summary{}, fmt.Errorf("no plan has been built")
	}
	ex := NewExecutor(e.store, e.index, e.opts.Move, e.log)
	ex.OnOp = onOp
	return ex.Run(plan)
}
