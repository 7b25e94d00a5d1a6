package stats

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/bassins/bassins-api/internal/production"
	"github.com/sirupsen/logrus"
)

// RecordStore is the read capability the engine needs: an equality-filtered
// scan returning records in no particular order.
type RecordStore interface {
	Scan(ctx context.Context, preds []production.Predicate) ([]production.Record, error)
}

// DefaultScanTimeout bounds a single store scan.
const DefaultScanTimeout = 10 * time.Second

// Engine computes rankings and zone summaries. It keeps no state between
// calls and is safe for concurrent use.
type Engine struct {
	store   RecordStore
	timeout time.Duration
	log     *logrus.Entry
}

type Option func(*Engine)

// WithScanTimeout sets the per-scan deadline. Zero disables it.
func WithScanTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(store RecordStore, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		timeout: DefaultScanTimeout,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) scan(ctx context.Context, preds []production.Predicate) ([]production.Record, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	recs, err := e.store.Scan(ctx, preds)
	if err != nil {
		e.log.WithError(err).WithField("predicates", len(preds)).Warn("record scan failed")
		return nil, StoreFailure(err)
	}
	e.log.WithFields(logrus.Fields{
		"predicates": len(preds),
		"records":    len(recs),
		"dur_ms":     time.Since(start).Milliseconds(),
	}).Debug("record scan")
	return recs, nil
}

// ZoneAggregate is the summed tonnage of one value of a grouping key.
type ZoneAggregate struct {
	Key   string
	Total float64

	milli int64
}

// sumBy groups recs by key and sums tonnage. Groups keep the order in which
// their key first appears in recs.
func sumBy(recs []production.Record, key func(production.Record) string) []ZoneAggregate {
	idx := make(map[string]int)
	var out []ZoneAggregate
	for _, r := range recs {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, ZoneAggregate{Key: k})
		}
		out[i].milli += toMilli(r.Tonnage)
	}
	for i := range out {
		out[i].Total = fromMilli(out[i].milli)
	}
	return out
}

// sortDesc orders by total, largest first. Equal totals keep their
// relative order.
func sortDesc(aggs []ZoneAggregate) {
	slices.SortStableFunc(aggs, func(a, b ZoneAggregate) int {
		return cmp.Compare(b.milli, a.milli)
	})
}

func top(aggs []ZoneAggregate, n int) []ZoneAggregate {
	if len(aggs) > n {
		return aggs[:n]
	}
	return aggs
}
