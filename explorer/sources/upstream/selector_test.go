package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cntExplorer/explorer/metrics"
)

// recorder is a scripted QueryFunc keyed by base URL.
type recorder struct {
	calls   []string
	results map[string]any
	errs    map[string]error
}

func (r *recorder) fn(_ context.Context, base string) (any, error) {
	r.calls = append(r.calls, base)
	if err := r.errs[base]; err != nil {
		return nil, err
	}
	return r.results[base], nil
}

func newSelector(bases ...string) *Selector {
	return &Selector{Source: "test", Bases: bases, Delay: time.Millisecond}
}

func TestSelector_FirstValidWins(t *testing.T) {
	rec := &recorder{
		results: map[string]any{
			"a": []any{},
			"b": []any{"hit"},
			"c": []any{"later"},
		},
	}

	got, err := newSelector("a", "b", "c").Do(context.Background(), rec.fn, NonEmptyList)
	require.NoError(t, err)
	assert.Equal(t, []any{"hit"}, got)
	assert.Equal(t, []string{"a", "b"}, rec.calls, "no mirror after the winner is called")
}

func TestSelector_ErrorFallsThrough(t *testing.T) {
	rec := &recorder{
		errs:    map[string]error{"a": errors.New("connection refused")},
		results: map[string]any{"b": []any{1}},
	}

	got, err := newSelector("a", "b").Do(context.Background(), rec.fn, NonEmptyList)
	require.NoError(t, err)
	assert.Equal(t, []any{1}, got)
	assert.Equal(t, []string{"a", "b"}, rec.calls)
}

func TestSelector_NoneValidFallsBackToFirst(t *testing.T) {
	rec := &recorder{
		results: map[string]any{
			"a": []any{},
			"b": []any{},
			"c": []any{},
		},
	}

	got, err := newSelector("a", "b", "c").Do(context.Background(), rec.fn, NonEmptyList)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
	assert.Equal(t, []string{"a", "b", "c", "a"}, rec.calls)
}

func TestSelector_AllErrorReturnsLastError(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	var attempts int
	fn := func(_ context.Context, base string) (any, error) {
		attempts++
		if base == "a" && attempts > 2 {
			return nil, errors.New("a still down")
		}
		if base == "a" {
			return nil, errA
		}
		return nil, errB
	}

	_, err := newSelector("a", "b").Do(context.Background(), fn, NonEmptyList)
	require.Error(t, err)
	assert.EqualError(t, err, "a still down", "the unconditional attempt's error is the last one")
	assert.Equal(t, 3, attempts)
}

func TestSelector_FinalAttemptSucceedsAfterErrors(t *testing.T) {
	var calls int
	fn := func(_ context.Context, base string) (any, error) {
		calls++
		if calls <= 2 {
			return nil, errors.New("flaky")
		}
		return []any{}, nil
	}

	got, err := newSelector("a", "b").Do(context.Background(), fn, NonEmptyList)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestSelector_EmptyBases(t *testing.T) {
	rec := &recorder{}
	_, err := newSelector().Do(context.Background(), rec.fn, NonEmptyList)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Empty(t, rec.calls)
}

func TestSelector_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(_ context.Context, base string) (any, error) {
		cancel()
		return nil, errors.New("down")
	}

	sel := &Selector{Source: "test", Bases: []string{"a", "b"}, Delay: time.Second}
	_, err := sel.Do(ctx, fn, NonEmptyList)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelector_CountsFallbacks(t *testing.T) {
	m := metrics.New("test")
	rec := &recorder{results: map[string]any{"a": []any{}, "b": []any{1}}}

	sel := newSelector("a", "b")
	sel.Metrics = m
	_, err := sel.Do(context.Background(), rec.fn, NonEmptyList)
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "test_mirror_fallbacks_total" {
			found = true
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

// Three mirrors all refusing connections: the selector surfaces an error and
// hits each once plus the unconditional retry on the first.
func TestSelector_WithClientAllMirrorsDown(t *testing.T) {
	var hits atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	client := NewClient("test", WithRetries(0))
	sel := newSelector(down.URL+"/m1", down.URL+"/m2", down.URL+"/m3")
	fn := func(ctx context.Context, base string) (any, error) {
		return client.Do(ctx, Request{URL: Join(base, "/tip")})
	}

	_, err := sel.Do(context.Background(), fn, NonEmptyList)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(4), hits.Load())
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsList([]any{}))
	assert.False(t, IsList(map[string]any{}))
	assert.False(t, NonEmptyList([]any{}))
	assert.True(t, NonEmptyList([]any{nil}))
	assert.Nil(t, First([]any{"x"}))
	assert.Equal(t, map[string]any{"k": "v"}, First([]any{map[string]any{"k": "v"}}))
}
