package stats

import (
	"cmp"
	"context"
	"slices"

	"github.com/bassins/bassins-api/internal/production"
	"golang.org/x/sync/errgroup"
)

// ZoneIdentity identifies a commune together with its parents.
type ZoneIdentity struct {
	CommuneCode    string
	CommuneName    string
	DepartmentName string
	RegionName     string
}

// RankResult is a commune's standing within a (year, sector) scope.
type RankResult struct {
	Zone             ZoneIdentity
	TotalTonnage     float64
	NationalTotal    float64
	RankNational     int
	RankRegional     int
	RankDepartmental int
	PctNational      float64
}

type communeTotal struct {
	zone  ZoneIdentity
	total int64 // thousandths of a tonne
}

func identityOf(r production.Record) ZoneIdentity {
	return ZoneIdentity{
		CommuneCode:    r.CommuneCode,
		CommuneName:    r.CommuneName,
		DepartmentName: r.DepartmentName,
		RegionName:     r.RegionName,
	}
}

// communeTotals sums tonnage per commune identity, in first-seen order.
func communeTotals(recs []production.Record) []communeTotal {
	idx := make(map[ZoneIdentity]int)
	var out []communeTotal
	for _, r := range recs {
		id := identityOf(r)
		i, ok := idx[id]
		if !ok {
			i = len(out)
			idx[id] = i
			out = append(out, communeTotal{zone: id})
		}
		out[i].total += toMilli(r.Tonnage)
	}
	return out
}

// competitionRank is 1 plus the number of totals strictly greater than v
// among those accepted by in. Tied values share a rank and the next value
// skips past the whole tie group.
func competitionRank(v int64, all []communeTotal, in func(ZoneIdentity) bool) int {
	rank := 1
	for _, c := range all {
		if in(c.zone) && c.total > v {
			rank++
		}
	}
	return rank
}

// Rank computes the national, regional and departmental rank of the commune
// named commune among all communes producing in sector during year.
// The name is compared byte for byte with the stored name: no trimming,
// case folding or Unicode normalisation. When several commune identities
// share the name, the best ranked one wins.
func (e *Engine) Rank(ctx context.Context, commune string, year int, sector string) (RankResult, error) {
	sector = clean(sector)
	if sector == "" {
		return RankResult{}, &ValidationError{Field: "filiere", Reason: "required"}
	}

	recs, err := e.scan(ctx, []production.Predicate{
		production.Eq(production.FieldYear, year),
		production.Eq(production.FieldSector, sector),
	})
	if err != nil {
		return RankResult{}, err
	}

	totals := communeTotals(recs)
	var national int64
	for _, c := range totals {
		national += c.total
	}
	if national == 0 {
		return RankResult{}, ErrNotFound
	}

	var (
		best  RankResult
		found bool
	)
	for _, c := range totals {
		if c.zone.CommuneName != commune {
			continue
		}
		res := RankResult{
			Zone:          c.zone,
			TotalTonnage:  Round2(fromMilli(c.total)),
			NationalTotal: Round2(fromMilli(national)),
			RankNational: competitionRank(c.total, totals, func(ZoneIdentity) bool {
				return true
			}),
			RankRegional: competitionRank(c.total, totals, func(z ZoneIdentity) bool {
				return z.RegionName == c.zone.RegionName
			}),
			RankDepartmental: competitionRank(c.total, totals, func(z ZoneIdentity) bool {
				return z.DepartmentName == c.zone.DepartmentName
			}),
			PctNational: Round2(Percent(fromMilli(c.total), fromMilli(national))),
		}
		if !found || res.RankNational < best.RankNational {
			best, found = res, true
		}
	}
	if !found {
		return RankResult{}, ErrNotFound
	}
	return best, nil
}

// ProductLine is one production record of a commune.
type ProductLine struct {
	Product string  `json:"produit"`
	Tonnage float64 `json:"tonnage"`
}

// CommuneDetail is a commune's ranking plus its individual product lines.
type CommuneDetail struct {
	RankResult
	Year     int
	Sector   string
	Products []ProductLine
}

// CommuneDetail runs Rank and the commune's product listing concurrently.
// Either failure fails the whole call.
func (e *Engine) CommuneDetail(ctx context.Context, commune string, year int, sector string) (CommuneDetail, error) {
	sector = clean(sector)

	var (
		rank  RankResult
		lines []ProductLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rank, err = e.Rank(gctx, commune, year, sector)
		return err
	})
	g.Go(func() error {
		recs, err := e.scan(gctx, []production.Predicate{
			production.Eq(production.FieldYear, year),
			production.Eq(production.FieldSector, sector),
			production.Eq(production.FieldCommune, commune),
		})
		if err != nil {
			return err
		}
		lines = make([]ProductLine, 0, len(recs))
		for _, r := range recs {
			lines = append(lines, ProductLine{Product: r.Product, Tonnage: r.Tonnage})
		}
		slices.SortStableFunc(lines, func(a, b ProductLine) int {
			return cmp.Compare(b.Tonnage, a.Tonnage)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return CommuneDetail{}, err
	}

	return CommuneDetail{
		RankResult: rank,
		Year:       year,
		Sector:     sector,
		Products:   lines,
	}, nil
}
