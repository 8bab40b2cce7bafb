// Package pipeline dispatches whole-file extraction units to a worker pool,
// commits containers atomically, and reports per-container outcomes. One bad
// container never terminates the repository job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/srcmirror/srcmirror/internal/extract"
	"github.com/srcmirror/srcmirror/internal/generate"
	"github.com/srcmirror/srcmirror/internal/lang"
	"github.com/srcmirror/srcmirror/internal/loader"
	"github.com/srcmirror/srcmirror/internal/model"
	"github.com/srcmirror/srcmirror/internal/store"
	"github.com/srcmirror/srcmirror/internal/validate"
)

// FailureKind classifies a per-container failure.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureInput       FailureKind = "input"
	FailureGrammar     FailureKind = "grammar"
	FailureStructural  FailureKind = "structural"
	FailureGeneration  FailureKind = "generation"
	FailureEquivalence FailureKind = "equivalence"
	FailureStore       FailureKind = "store"
	FailureTimeout     FailureKind = "timeout"
	FailureCanceled    FailureKind = "canceled"
)

// Outcome is the per-container result of one pipeline run.
type Outcome struct {
	Path        string
	Language    string
	ContainerID string
	Blocks      int
	Failure     FailureKind
	Err         error
}

// Summary aggregates outcomes for reporting.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	ByKind    map[FailureKind]int
}

// Config tunes a pipeline run.
type Config struct {
	// Workers sizes the pool; zero means available hardware parallelism.
	Workers int
	// FileTimeout bounds one file's extraction when positive. On timeout
	// the container fails with a recoverable error and the pool continues.
	FileTimeout time.Duration
	// Validate regenerates each committed container and runs the
	// round-trip oracle against the original bytes. Regeneration uses
	// default emission options; import grouping reorders statements and is
	// a regeneration-time choice, not part of the round-trip contract.
	Validate bool
}

// Run extracts all sources into the store under one snapshot and returns
// per-container outcomes sorted by path. Warnings stream to warn.
func Run(ctx context.Context, st store.Store, snap *model.Snapshot, sources []loader.Source, cfg Config, warn io.Writer) ([]Outcome, Summary, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	type unit struct {
		outcome    Outcome
		container  *model.Container
		unresolved []extract.PendingRef
	}

	work := make(chan int, len(sources))
	results := make(chan unit, len(sources))

	var wg sync.WaitGroup
	var warnMu sync.Mutex
	warnf := func(format string, args ...any) {
		warnMu.Lock()
		defer warnMu.Unlock()
		fmt.Fprintf(warn, format, args...)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				src := sources[idx]
				u := unit{outcome: Outcome{Path: src.Path, Language: src.Language}}
				u.container, u.unresolved, u.outcome.Failure, u.outcome.Err = extractOne(ctx, src, snap.ID, cfg)
				if u.outcome.Err != nil {
					warnf("Warning: %s: %v\n", src.Path, u.outcome.Err)
				}
				if u.container != nil {
					u.outcome.ContainerID = u.container.ID
					u.outcome.Blocks = len(u.container.Blocks)
				}
				results <- u
			}
		}()
	}

	for i := range sources {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	var outcomes []Outcome
	var committed []*model.Container
	var unresolved []extract.PendingRef
	for u := range results {
		if u.container != nil {
			if err := st.PutContainer(ctx, u.container); err != nil {
				u.outcome.Failure = FailureStore
				u.outcome.Err = err
				u.container = nil
			}
		}
		if u.container != nil {
			committed = append(committed, u.container)
			unresolved = append(unresolved, u.unresolved...)
			if cfg.Validate && u.outcome.Failure == FailureNone {
				u.outcome.Failure, u.outcome.Err = validateOne(ctx, st, u.container, sources)
			}
		}
		outcomes = append(outcomes, u.outcome)
	}

	if err := resolveAcrossContainers(ctx, st, committed, unresolved); err != nil {
		return nil, Summary{}, err
	}

	for _, c := range committed {
		snap.ContainerIDs = append(snap.ContainerIDs, c.ID)
	}
	sort.Strings(snap.ContainerIDs)
	if err := st.PutSnapshot(ctx, snap); err != nil {
		return nil, Summary{}, err
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Path < outcomes[j].Path })
	return outcomes, summarize(outcomes), nil
}

// extractOne runs a single file through extraction, honoring the per-file
// timeout. Grammar failures still record an empty container so the snapshot
// remembers the file; input and structural failures skip it entirely.
func extractOne(ctx context.Context, src loader.Source, snapshotID string, cfg Config) (*model.Container, []extract.PendingRef, FailureKind, error) {
	if cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.FileTimeout)
		defer cancel()
	}

	res, err := extract.Extract(ctx, src.Bytes, extract.Meta{
		SnapshotID:  snapshotID,
		Path:        src.Path,
		Language:    src.Language,
		ContentHash: src.ContentHash,
	})
	switch {
	case err == nil:
		return res.Container, res.Unresolved, FailureNone, nil
	case errors.Is(err, context.DeadlineExceeded):
		return nil, nil, FailureTimeout, err
	case errors.Is(err, context.Canceled):
		return nil, nil, FailureCanceled, err
	case errors.Is(err, extract.ErrInput):
		return nil, nil, FailureInput, err
	case errors.Is(err, lang.ErrGrammar):
		empty := &model.Container{
			ID:          uuid.NewString(),
			SnapshotID:  snapshotID,
			Path:        src.Path,
			Language:    src.Language,
			ContentHash: src.ContentHash,
			LineEnding:  "\n",
		}
		return empty, nil, FailureGrammar, err
	case errors.Is(err, extract.ErrStructural):
		return nil, nil, FailureStructural, err
	default:
		return nil, nil, FailureStructural, err
	}
}

func validateOne(ctx context.Context, st store.Store, c *model.Container, sources []loader.Source) (FailureKind, error) {
	regen, err := generate.Container(ctx, st, c.ID, generate.Options{})
	if err != nil {
		return FailureGeneration, err
	}
	var original []byte
	for i := range sources {
		if sources[i].Path == c.Path {
			original = sources[i].Bytes
			break
		}
	}
	if err := validate.Check(ctx, c.Language, original, regen); err != nil {
		return FailureEquivalence, err
	}
	return FailureNone, nil
}

// resolveAcrossContainers binds references that missed inside their own
// container against the rest of the snapshot. Candidates resolve
// deterministically: lowest container path, then lowest start byte. Misses
// are dropped, never persisted.
func resolveAcrossContainers(ctx context.Context, st store.Store, containers []*model.Container, unresolved []extract.PendingRef) error {
	if len(unresolved) == 0 {
		return nil
	}

	sort.Slice(containers, func(i, j int) bool { return containers[i].Path < containers[j].Path })

	defines := make(map[string]string) // canonical name -> block id
	for _, c := range containers {
		for _, b := range c.Blocks {
			if b.Name == "" {
				continue
			}
			if _, taken := defines[b.Name]; !taken {
				defines[b.Name] = b.ID
			}
		}
	}

	type edge struct {
		src, tgt string
		kind     model.RelationshipKind
	}
	seen := make(map[edge]bool)
	var rels []model.Relationship
	for _, p := range unresolved {
		targetID, ok := defines[p.TargetName]
		if !ok || targetID == p.SourceID {
			continue
		}
		e := edge{p.SourceID, targetID, p.Kind}
		if seen[e] {
			continue
		}
		seen[e] = true
		rels = append(rels, model.Relationship{
			SourceID: p.SourceID,
			TargetID: targetID,
			Kind:     p.Kind,
			Metadata: map[string]string{"cross_container": "true"},
		})
	}
	return st.PutRelationships(ctx, rels)
}

func summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByKind: make(map[FailureKind]int)}
	for _, o := range outcomes {
		if o.Failure == FailureNone {
			s.Succeeded++
			continue
		}
		s.Failed++
		s.ByKind[o.Failure]++
	}
	return s
}
