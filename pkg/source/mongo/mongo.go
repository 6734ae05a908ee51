// Package mongo fetches real citation networks from a MongoDB patent
// collection.
//
// Each document carries a patent number, the numbers of the patents citing it
// and its keywords ordered by relevance:
//
//	{"pno": 4405829, "citedby": [4424414, ...], "sorted_text": ["key", "cipher", ...]}
//
// [Fetcher.WalkDown] grows a network breadth-first from a root patent along
// "citedby", the direction in which citations form new generations.
package mongo

import (
	"cmp"
	"context"
	stderrors "errors"
	"slices"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/source"
)

const (
	DefaultDatabase   = "patents"
	DefaultCollection = "patns"
)

// Patent is one document of the patent collection.
type Patent struct {
	PNo        int64    `bson:"pno" json:"pno"`
	CitedBy    []int64  `bson:"citedby" json:"citedby"`
	SortedText []string `bson:"sorted_text" json:"sorted_text,omitempty"`
}

// Store looks patents up by number.
type Store interface {
	// FindOne returns the patent numbered pno or a NOT_FOUND error.
	FindOne(ctx context.Context, pno int64) (*Patent, error)

	// FindMany returns the patents among pnos that exist, in any order.
	FindMany(ctx context.Context, pnos []int64) ([]Patent, error)
}

var projection = bson.M{"pno": 1, "citedby": 1, "sorted_text": 1}

// Collection is a Store backed by a MongoDB collection.
type Collection struct {
	client *driver.Client
	coll   *driver.Collection
}

// Connect opens the collection db.coll at uri, defaulting to the
// patents.patns collection.
func Connect(ctx context.Context, uri, db, coll string) (*Collection, error) {
	if db == "" {
		db = DefaultDatabase
	}
	if coll == "" {
		coll = DefaultCollection
	}
	client, err := driver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "connect to %s", uri)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeIO, err, "ping %s", uri)
	}
	return &Collection{client: client, coll: client.Database(db).Collection(coll)}, nil
}

// FindOne implements Store.
func (c *Collection) FindOne(ctx context.Context, pno int64) (*Patent, error) {
	var p Patent
	err := c.coll.FindOne(ctx, bson.M{"pno": pno}, options.FindOne().SetProjection(projection)).Decode(&p)
	if stderrors.Is(err, driver.ErrNoDocuments) {
		return nil, errors.New(errors.ErrCodeNotFound, "patent %d not found", pno)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "find patent %d", pno)
	}
	return &p, nil
}

// FindMany implements Store.
func (c *Collection) FindMany(ctx context.Context, pnos []int64) ([]Patent, error) {
	if len(pnos) == 0 {
		return nil, nil
	}
	cur, err := c.coll.Find(ctx, bson.M{"pno": bson.M{"$in": pnos}}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "find %d patents", len(pnos))
	}
	var out []Patent
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "decode patents")
	}
	return out, nil
}

// Close disconnects the client.
func (c *Collection) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Fetcher walks citation networks out of a Store.
type Fetcher struct {
	store    Store
	logger   *log.Logger
	keywords int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger logs one debug line per walked generation.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithKeywords keeps the n most relevant keywords of each patent.
// Zero or less keeps them all.
func WithKeywords(n int) Option {
	return func(f *Fetcher) { f.keywords = n }
}

// NewFetcher creates a Fetcher reading from store.
func NewFetcher(store Store, opts ...Option) *Fetcher {
	f := &Fetcher{store: store}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WalkDown collects the network reachable from root within depth
// generations, root being the first. A citing patent joins the network only
// when it is itself cited at least threshold times; a citation to a patent
// already in the network is recorded without revisiting it.
func (f *Fetcher) WalkDown(ctx context.Context, root int64, depth, threshold int) (*source.Network, error) {
	if depth < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "depth must be at least 1, got %d", depth)
	}
	if threshold < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "threshold must be non-negative, got %d", threshold)
	}

	p, err := f.store.FindOne(ctx, root)
	if err != nil {
		return nil, err
	}

	nodes := []int64{p.PNo}
	seen := map[int64]bool{p.PNo: true}
	keywords := map[int64][]string{p.PNo: p.SortedText}
	gens := [][]int64{{p.PNo}}
	frontier := []Patent{*p}
	var links []source.Link

	for g := 1; g < depth; g++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []Patent
		var ids []int64
		for _, par := range frontier {
			children, err := f.store.FindMany(ctx, par.CitedBy)
			if err != nil {
				return nil, err
			}
			slices.SortFunc(children, func(a, b Patent) int { return cmp.Compare(a.PNo, b.PNo) })
			for _, child := range children {
				if len(child.CitedBy) < threshold {
					continue
				}
				links = append(links, source.Link{Parent: par.PNo, Child: child.PNo})
				if seen[child.PNo] {
					continue
				}
				seen[child.PNo] = true
				nodes = append(nodes, child.PNo)
				ids = append(ids, child.PNo)
				keywords[child.PNo] = child.SortedText
				next = append(next, child)
			}
		}
		gens = append(gens, ids)
		frontier = next
		if f.logger != nil {
			f.logger.Debug("generation walked", "gen", g, "new", len(ids), "nodes", len(nodes), "links", len(links))
		}
	}

	net, err := source.Reindex(nodes, links)
	if err != nil {
		return nil, err
	}
	net.SetGenerations(gens)
	net.SetKeywords(keywords, f.keywords)
	return net, nil
}
