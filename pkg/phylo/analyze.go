package phylo

import (
	"context"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/observability"
)

// Analysis is the read-only result of analyzing one network.
type Analysis struct {
	GenLen      int
	Parentage   [][]int
	Phenomes    []*roaring.Bitmap
	Ancestors   []*roaring.Bitmap
	Descendants []*roaring.Bitmap
	Surviving   *roaring.Bitmap
	Inheritance *Inheritance
}

// NumNodes is the number of nodes analyzed.
func (a *Analysis) NumNodes() int { return len(a.Parentage) }

// NumCitations is the number of edges in the network.
func (a *Analysis) NumCitations() int {
	n := 0
	for _, ps := range a.Parentage {
		n += len(ps)
	}
	return n
}

// Option customizes Analyze.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Analyze validates the input, computes both closures concurrently and then
// derives the surviving traits and first-degree inheritance.
func Analyze(ctx context.Context, parentage [][]int, phenomes []*roaring.Bitmap, genLen int, opts ...Option) (*Analysis, error) {
	o := options{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&o)
	}

	hooks := observability.Analysis()
	hooks.OnAnalysisStart(ctx, len(parentage))
	start := time.Now()

	a, err := analyze(ctx, parentage, phenomes, genLen, o.logger)
	inherited := 0
	if a != nil {
		inherited = a.Inheritance.Total()
	}
	hooks.OnAnalysisComplete(ctx, len(parentage), inherited, time.Since(start), err)
	return a, err
}

func analyze(ctx context.Context, parentage [][]int, phenomes []*roaring.Bitmap, genLen int, logger *log.Logger) (*Analysis, error) {
	if err := errors.ValidatePositive("gen_len", genLen); err != nil {
		return nil, err
	}
	if phenomes == nil {
		phenomes = make([]*roaring.Bitmap, len(parentage))
	}
	for i, p := range phenomes {
		if p == nil {
			phenomes[i] = roaring.New()
		}
	}
	if err := Validate(parentage, phenomes); err != nil {
		return nil, err
	}

	a := &Analysis{GenLen: genLen, Parentage: parentage, Phenomes: phenomes}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		anc, err := ancestors(gctx, parentage)
		a.Ancestors = anc
		return err
	})
	g.Go(func() error {
		desc, err := descendants(gctx, parentage)
		a.Descendants = desc
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("closures computed", "nodes", len(parentage))

	a.Surviving = SurvivingTraits(phenomes, genLen)
	a.Inheritance = FirstDegree(parentage, phenomes, a.Surviving)
	logger.Debug("inheritance computed",
		"surviving", a.Surviving.GetCardinality(),
		"transmissions", a.Inheritance.Total())
	return a, nil
}
