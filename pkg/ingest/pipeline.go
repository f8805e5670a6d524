// Package ingest turns the colony resource files into directory snapshots.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jamesprial/colony-directory/pkg/directory"
)

// Store persists the dataset of the most recent ingestion cycle.
type Store interface {
	// IsCurrent reports whether the pair is the last one recorded.
	IsCurrent(ctx context.Context, companyHash, peopleHash string) (bool, error)
	LoadDataset(ctx context.Context) (directory.Dataset, error)
	// ReplaceDataset swaps the stored dataset and records the pair atomically.
	ReplaceDataset(ctx context.Context, ds directory.Dataset, companyHash, peopleHash string) error
}

// Result describes one pipeline run.
type Result struct {
	Pair    FilePair
	Outcome string
	Stats   directory.Stats
}

// Pipeline loads a dataset, builds a snapshot and publishes it. Runs are
// serialised; a failed run leaves the published snapshot untouched.
type Pipeline struct {
	source Source
	store  Store
	dir    *directory.Directory
	logger *slog.Logger

	mu       sync.Mutex
	lastPair FilePair
}

// NewPipeline creates a pipeline. store may be nil, in which case every
// change of the file pair is decoded from disk.
func NewPipeline(source Source, store Store, dir *directory.Directory, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: source, store: store, dir: dir, logger: logger}
}

// Run executes one ingestion cycle.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res, err := p.run(ctx)
	if err != nil {
		ingestionsTotal.WithLabelValues(OutcomeFailed).Inc()
		p.logger.Error("ingestion failed",
			slog.String("dir", p.source.Dir),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}

	ingestionsTotal.WithLabelValues(res.Outcome).Inc()
	p.logger.Info("ingestion complete",
		slog.String("outcome", res.Outcome),
		slog.String("company_hash", res.Pair.CompanyHash),
		slog.String("people_hash", res.Pair.PeopleHash),
		slog.Int("people", res.Stats.People),
		slog.Int("companies", res.Stats.Companies),
		slog.Int("friendships", res.Stats.Friendships),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (Result, error) {
	pair, err := p.source.Hash(ctx)
	if err != nil {
		return Result{}, err
	}

	if pair == p.lastPair && p.dir.Loaded() {
		return Result{Pair: pair, Outcome: OutcomeUnchanged, Stats: p.dir.Current().Stats()}, nil
	}

	var (
		ds      directory.Dataset
		outcome string
	)

	current := false
	if p.store != nil {
		current, err = p.store.IsCurrent(ctx, pair.CompanyHash, pair.PeopleHash)
		if err != nil {
			return Result{}, fmt.Errorf("failed to check ingestion history: %w", err)
		}
	}

	if current {
		p.logger.Debug("file pair already ingested, loading from store")
		ds, err = p.store.LoadDataset(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("failed to load dataset: %w", err)
		}
		outcome = OutcomeLoaded
	} else {
		ds, pair, err = p.source.Read(ctx)
		if err != nil {
			return Result{}, err
		}
		outcome = OutcomeIngested
	}

	snap, err := directory.NewSnapshot(ds)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build snapshot: %w", err)
	}

	if outcome == OutcomeIngested && p.store != nil {
		if err := p.store.ReplaceDataset(ctx, ds, pair.CompanyHash, pair.PeopleHash); err != nil {
			return Result{}, fmt.Errorf("failed to persist dataset: %w", err)
		}
	}

	p.dir.Replace(snap)
	p.lastPair = pair
	stats := snap.Stats()
	recordSnapshot(stats)

	return Result{Pair: pair, Outcome: outcome, Stats: stats}, nil
}
