// Package pipeline turns an uploaded image into a catalog query: decode,
// dominant colors and frame normalization in parallel, embedding, then the
// matcher call.
package pipeline

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"productmatcher/catalog"
	"productmatcher/imageprocessor"
	"productmatcher/logging"
	"productmatcher/types"
)

// Query policy. Callers cannot override these.
const (
	MatchThreshold = 0.4
	MatchCount     = 6
)

// Embedder produces embeddings for normalized frames
type Embedder interface {
	Check(op string) error
	Embed(ctx context.Context, frame gocv.Mat) (types.EmbeddingVector, error)
}

// Pipeline holds the shared collaborators of every request
type Pipeline struct {
	decoder  *imageprocessor.Decoder
	embedder Embedder
	matcher  catalog.Matcher
}

// Analysis is the per-image output before matching
type Analysis struct {
	Colors    types.ColorProfile
	Embedding types.EmbeddingVector
	Width     int
	Height    int
	Timings   types.StageTimings
}

// Result is what a match request returns
type Result struct {
	Matches types.MatchResult
	Colors  types.ColorProfile
	Timings types.StageTimings
}

// New builds a pipeline. A nil decoder uses the default loader registry;
// matcher may be nil for callers that only Analyze.
func New(decoder *imageprocessor.Decoder, embedder Embedder, matcher catalog.Matcher) *Pipeline {
	if decoder == nil {
		decoder = imageprocessor.NewDecoder(nil)
	}
	return &Pipeline{
		decoder:  decoder,
		embedder: embedder,
		matcher:  matcher,
	}
}

// Analyze decodes raw and computes its color profile and embedding
func (p *Pipeline) Analyze(ctx context.Context, raw types.RawImage) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Refuse early so a loading engine costs no decode work
	if err := p.embedder.Check("analyze"); err != nil {
		return nil, err
	}

	start := time.Now()
	grid, err := p.decoder.Decode(raw)
	if err != nil {
		grid.Close()
		return nil, err
	}
	defer grid.Close()

	a := &Analysis{Width: grid.Cols(), Height: grid.Rows()}
	a.Timings.Decode = time.Since(start)

	// Both branches only read grid
	var (
		frame     gocv.Mat
		haveFrame bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		a.Colors = imageprocessor.ProfileColors(grid)
		a.Timings.Colors = time.Since(t)
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		f, err := imageprocessor.NormalizeFrame(grid)
		if err != nil {
			f.Close()
			return err
		}
		frame, haveFrame = f, true
		a.Timings.Normalize = time.Since(t)
		return gctx.Err()
	})
	err = g.Wait()
	if haveFrame {
		defer frame.Close()
	}
	if err != nil {
		return nil, err
	}

	t := time.Now()
	a.Embedding, err = p.embedder.Embed(ctx, frame)
	if err != nil {
		return nil, err
	}
	a.Timings.Embed = time.Since(t)

	return a, nil
}

// Process runs Analyze and sends the resulting query to the matcher. Any
// failure aborts the request; there are no partial results.
func (p *Pipeline) Process(ctx context.Context, raw types.RawImage) (*Result, error) {
	if p.matcher == nil {
		return nil, types.InternalError("process", errors.New("no catalog matcher configured"))
	}

	a, err := p.Analyze(ctx, raw)
	if err != nil {
		return nil, err
	}

	q := types.MatchQuery{
		Embedding: a.Embedding,
		Colors:    a.Colors,
		Threshold: MatchThreshold,
		Count:     MatchCount,
	}

	t := time.Now()
	matches, err := p.matcher.Match(ctx, q)
	if err != nil {
		var tagged *types.Error
		if !errors.As(err, &tagged) {
			err = types.UpstreamError("match", err)
		}
		return nil, err
	}
	a.Timings.Match = time.Since(t)

	if matches == nil {
		matches = types.MatchResult{}
	}

	logging.DebugLog("Matched %dx%d image: %d colors, %d matches", a.Width, a.Height, len(a.Colors), len(matches))
	return &Result{
		Matches: matches,
		Colors:  a.Colors,
		Timings: a.Timings,
	}, nil
}
