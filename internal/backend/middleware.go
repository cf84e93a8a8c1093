package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Middleware decorates a Generator with a cross-cutting concern.
type Middleware func(Generator) Generator

// Wrap applies middlewares left to right: Wrap(g, A, B) is A(B(g)).
func Wrap(inner Generator, mws ...Middleware) Generator {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit throttles calls to rps per second with the given burst.
// rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Generator) Generator {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next Generator
	lim  *rate.Limiter
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.lim.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: KindRateLimit, Err: err}
	}
	return r.next.Generate(ctx, prompt)
}

// Cache memoizes successful non-empty responses by prompt. size <= 0
// disables caching.
func Cache(size int) Middleware {
	return func(next Generator) Generator {
		if size <= 0 {
			return next
		}
		c, err := lru.New[string, string](size)
		if err != nil {
			return next
		}
		return &cached{next: next, cache: c}
	}
}

type cached struct {
	next  Generator
	cache *lru.Cache[string, string]
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Generate(ctx context.Context, prompt string) (string, error) {
	sum := sha256.Sum256([]byte(prompt))
	key := hex.EncodeToString(sum[:])
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}
	text, err := c.next.Generate(ctx, prompt)
	if err == nil && text != "" {
		c.cache.Add(key, text)
	}
	return text, err
}

// Logging records every call at debug level and failures at warn level.
func Logging(log *zap.SugaredLogger) Middleware {
	return func(next Generator) Generator {
		if log == nil {
			return next
		}
		return &logged{next: next, log: log}
	}
}

type logged struct {
	next Generator
	log  *zap.SugaredLogger
}

func (l *logged) Name() string { return l.next.Name() }

func (l *logged) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := l.next.Generate(ctx, prompt)
	if err != nil {
		l.log.Warnw("backend call failed",
			"backend", l.next.Name(),
			"prompt_bytes", len(prompt),
			"elapsed", time.Since(start),
			"error", err)
		return text, err
	}
	l.log.Debugw("backend call",
		"backend", l.next.Name(),
		"prompt_bytes", len(prompt),
		"response_bytes", len(text),
		"elapsed", time.Since(start))
	return text, nil
}
