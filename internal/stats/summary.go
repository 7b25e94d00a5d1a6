package stats

import (
	"context"

	"github.com/bassins/bassins-api/internal/production"
)

// TopN is the length of the product and commune leaderboards.
const TopN = 5

type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"valeur"`
}

type NameValue struct {
	Name  string  `json:"nom"`
	Value float64 `json:"valeur"`
}

type ZoneValue struct {
	Zone  string  `json:"zone"`
	Value float64 `json:"valeur"`
}

// Comparison is the breakdown of a scope by its comparison level.
type Comparison struct {
	Title   string      `json:"titre"`
	Level   Level       `json:"-"`
	Entries []ZoneValue `json:"donnees"`
}

// ZoneSummary aggregates every record in a filtered scope.
type ZoneSummary struct {
	TotalTonnage float64      `json:"production_totale"`
	TopProducts  []LabelValue `json:"top_5_produits"`
	TopZones     []NameValue  `json:"top_5_bassins"`
	Comparison   Comparison   `json:"comparaison"`
}

// Summarize computes the total, the top products, the top communes and the
// comparison breakdown of the scope described by f. Year and sector are
// required.
//
// All four parts are computed from one scan, so they describe the same
// snapshot of the store. Among equal sums, groups keep the order in which
// the store returned their first record.
func (e *Engine) Summarize(ctx context.Context, f FilterSpec) (ZoneSummary, error) {
	if err := f.RequireScope(); err != nil {
		return ZoneSummary{}, err
	}

	recs, err := e.scan(ctx, f.Predicates())
	if err != nil {
		return ZoneSummary{}, err
	}
	return summarize(recs, f), nil
}

func summarize(recs []production.Record, f FilterSpec) ZoneSummary {
	var total int64
	for _, r := range recs {
		total += toMilli(r.Tonnage)
	}

	products := sumBy(recs, func(r production.Record) string { return r.Product })
	sortDesc(products)
	zones := sumBy(recs, func(r production.Record) string { return r.CommuneName })
	sortDesc(zones)

	level := f.Level()
	field := level.GroupField()
	breakdown := sumBy(recs, func(r production.Record) string { return r.Value(field) })
	sortDesc(breakdown)

	s := ZoneSummary{
		TotalTonnage: Round2(fromMilli(total)),
		TopProducts:  make([]LabelValue, 0, TopN),
		TopZones:     make([]NameValue, 0, TopN),
		Comparison: Comparison{
			Title:   f.ComparisonTitle(),
			Level:   level,
			Entries: make([]ZoneValue, 0, len(breakdown)),
		},
	}
	for _, a := range top(products, TopN) {
		s.TopProducts = append(s.TopProducts, LabelValue{Label: a.Key, Value: Round2(a.Total)})
	}
	for _, a := range top(zones, TopN) {
		s.TopZones = append(s.TopZones, NameValue{Name: a.Key, Value: Round2(a.Total)})
	}
	for _, a := range breakdown {
		s.Comparison.Entries = append(s.Comparison.Entries, ZoneValue{Zone: a.Key, Value: Round2(a.Total)})
	}
	return s
}
