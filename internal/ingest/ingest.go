// Package ingest turns demo files into ParsedMatch values, going through the
// SQLite cache when one is configured.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/parser"
	"github.com/pable/go-cs-esalytics/internal/stats"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

// Build computes player statistics and the match summary of raw.
func Build(raw *model.RawMatch) (*model.ParsedMatch, error) {
	rows, err := stats.Compute(raw)
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}
	ctScore, tScore := stats.Score(raw.Rounds)
	clanA, clanB := stats.ClanPair(raw)
	return &model.ParsedMatch{
		Summary: model.MatchSummary{
			DemoHash:  raw.DemoHash,
			FileName:  raw.FileName,
			MapName:   raw.MapName,
			MatchDate: raw.MatchDate,
			Tickrate:  raw.Tickrate,
			CTScore:   ctScore,
			TScore:    tScore,
			ClanA:     clanA,
			ClanB:     clanB,
			ParsedAt:  time.Now().UTC(),
		},
		Stats: rows,
		Raw:   raw,
	}, nil
}

// Result is one ingested demo.
type Result struct {
	Path   string
	Match  *model.ParsedMatch
	Cached bool
	Err    error
}

// Ingester parses demos and stores them. DB may be nil, in which case every
// demo is parsed and nothing is persisted.
type Ingester struct {
	DB     *storage.DB
	Logger *zap.Logger
}

// Ingest returns the match of the demo at path, from the cache when the
// file's hash is already stored. opts.FileName overrides the stored name.
func (in *Ingester) Ingest(ctx context.Context, path string, opts parser.Options) (*model.ParsedMatch, bool, error) {
	fileName := opts.FileName
	if fileName == "" {
		fileName = filepath.Base(path)
	}

	if in.DB != nil {
		hash, err := parser.HashFile(path)
		if err != nil {
			return nil, false, err
		}
		m, err := in.DB.GetMatch(hash)
		if err != nil {
			return nil, false, fmt.Errorf("load cached match: %w", err)
		}
		if m != nil {
			in.Logger.Debug("demo cache hit", zap.String("file", fileName), zap.String("hash", hash[:12]))
			m.Summary.FileName = fileName
			m.Raw.FileName = fileName
			if opts.Progress != nil {
				opts.Progress(1)
			}
			return m, true, nil
		}
	}

	start := time.Now()
	opts.FileName = fileName
	raw, err := parser.ParseDemo(ctx, path, opts)
	if err != nil {
		return nil, false, fmt.Errorf("parse demo: %w", err)
	}
	m, err := Build(raw)
	if err != nil {
		return nil, false, err
	}
	in.Logger.Info("demo parsed",
		zap.String("file", fileName),
		zap.String("map", raw.MapName),
		zap.Int("rounds", len(raw.Rounds)),
		zap.Int("kills", len(raw.Kills)),
		zap.Duration("took", time.Since(start)))

	if in.DB != nil {
		if err := in.DB.InsertMatch(m); err != nil {
			return nil, false, fmt.Errorf("store match: %w", err)
		}
	}
	return m, false, nil
}

// IngestAll ingests paths with at most workers demos in flight. Results are
// returned in input order; a failing demo does not stop the others.
func (in *Ingester) IngestAll(ctx context.Context, paths []string, workers int) []Result {
	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			m, cached, err := in.Ingest(gctx, path, parser.Options{})
			results[i] = Result{Path: path, Match: m, Cached: cached, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
