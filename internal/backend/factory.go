package backend

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Providers lists the generator names New accepts.
var Providers = []string{"gemini", "skeleton"}

// Options configures New.
type Options struct {
	Provider  string
	Model     string
	APIKey    string
	RPS       float64
	Burst     int
	CacheSize int
	Logger    *zap.SugaredLogger
}

// New builds the named generator wrapped in logging, caching and rate
// limiting, outermost first. Cache hits bypass the limiter.
func New(ctx context.Context, opts Options) (Generator, error) {
	var inner Generator
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "gemini":
		g, err := NewGemini(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		inner = g
	case "skeleton":
		inner = Skeleton{}
	default:
		return nil, errors.Newf("unknown backend provider %q (want one of %s)",
			opts.Provider, strings.Join(Providers, ", "))
	}
	return Wrap(inner,
		Logging(opts.Logger),
		Cache(opts.CacheSize),
		RateLimit(opts.RPS, opts.Burst),
	), nil
}
