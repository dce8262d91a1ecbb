package upstream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cntExplorer/explorer/config"
	"cntExplorer/explorer/logging"
	"cntExplorer/explorer/metrics"
)

// DefaultMirrorDelay is the pause before moving on to the next base URL.
const DefaultMirrorDelay = 150 * time.Millisecond

// ErrAllSourcesFailed is returned when no mirror validated and none raised an error.
var ErrAllSourcesFailed = errors.New("all sources failed")

// QueryFunc executes one query against the given base URL.
type QueryFunc func(ctx context.Context, base string) (any, error)

// Predicate reports whether a raw payload is acceptable.
type Predicate func(any) bool

// Selector tries an ordered list of redundant base URLs until one returns a
// payload the predicate accepts. It keeps no memory between calls.
type Selector struct {
	Source  string
	Bases   []string
	Delay   time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Do runs fn against each base in order and returns the first accepted
// result. When every base fails or is rejected, fn runs once more against the
// first base and its result is returned unless it errors.
func (s *Selector) Do(ctx context.Context, fn QueryFunc, valid Predicate) (any, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var lastErr error
	for i, base := range s.Bases {
		res, err := fn(ctx, base)
		if err == nil && (valid == nil || valid(res)) {
			return res, nil
		}

		if err != nil {
			lastErr = err
			logger.Warn("Mirror failed", "source", s.Source, "base", base, "index", i, "error", err.Error())
		} else {
			logger.Warn("Mirror response rejected", "source", s.Source, "base", base, "index", i)
		}
		s.Metrics.Fallback(s.Source)

		if err := sleep(ctx, s.Delay); err != nil {
			return nil, err
		}
	}

	if len(s.Bases) > 0 {
		s.Metrics.Exhausted(s.Source)
		res, err := fn(ctx, s.Bases[0])
		if err == nil {
			logger.Info("Mirrors exhausted, using unvalidated response", "source", s.Source, "base", s.Bases[0])
			return res, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		logger.Error("All mirrors failed", "source", s.Source, "error", lastErr.Error())
		return nil, lastErr
	}
	return nil, ErrAllSourcesFailed
}

// New builds the client and selector for a configured source.
func New(source string, cfg config.SourceConfig, logger *slog.Logger, m *metrics.Metrics) (*Client, *Selector) {
	client := NewClient(source,
		WithTimeout(cfg.Timeout),
		WithRetries(cfg.Retries),
		WithBackoff(cfg.Backoff),
		WithUserAgent(cfg.UserAgent),
		WithLogger(logger),
		WithMetrics(m),
	)
	sel := &Selector{
		Source:  source,
		Bases:   append([]string(nil), cfg.BaseURLs...),
		Delay:   cfg.MirrorDelay,
		Logger:  logger,
		Metrics: m,
	}
	return client, sel
}
