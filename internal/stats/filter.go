package stats

import (
	"strconv"
	"strings"

	"github.com/bassins/bassins-api/internal/production"
	"golang.org/x/text/unicode/norm"
)

// Level is the administrative granularity of a comparison breakdown.
type Level int

const (
	National Level = iota
	Regional
	Departmental
)

func (l Level) String() string {
	switch l {
	case Departmental:
		return "departmental"
	case Regional:
		return "regional"
	}
	return "national"
}

// GroupField is the field whose values are compared at this level:
// communes inside a department, departments inside a region, regions
// across the country.
func (l Level) GroupField() production.Field {
	switch l {
	case Departmental:
		return production.FieldCommune
	case Regional:
		return production.FieldDepartment
	}
	return production.FieldRegion
}

// Params are the raw query parameters of a statistics or map request.
type Params struct {
	Year       string
	Sector     string
	Product    string
	Region     string
	Department string
	Commune    string
}

// FilterSpec is the normalised, immutable form of Params.
type FilterSpec struct {
	year       int
	hasYear    bool
	sector     string
	product    string
	region     string
	department string
	commune    string
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NewFilterSpec normalises p. It only fails when a year is given but is not
// an integer.
func NewFilterSpec(p Params) (FilterSpec, error) {
	f := FilterSpec{
		sector:     clean(p.Sector),
		product:    clean(p.Product),
		region:     clean(p.Region),
		department: clean(p.Department),
		commune:    clean(p.Commune),
	}

	if y := strings.TrimSpace(p.Year); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return FilterSpec{}, &ValidationError{Field: "annee", Reason: "must be an integer"}
		}
		f.year, f.hasYear = n, true
	}
	return f, nil
}

func (f FilterSpec) Year() (int, bool)  { return f.year, f.hasYear }
func (f FilterSpec) Sector() string     { return f.sector }
func (f FilterSpec) Product() string    { return f.product }
func (f FilterSpec) Region() string     { return f.region }
func (f FilterSpec) Department() string { return f.department }
func (f FilterSpec) Commune() string    { return f.commune }

// RequireScope fails unless both year and sector are set.
func (f FilterSpec) RequireScope() error {
	if !f.hasYear {
		return &ValidationError{Field: "annee", Reason: "required"}
	}
	if f.sector == "" {
		return &ValidationError{Field: "filiere", Reason: "required"}
	}
	return nil
}

// Predicates returns the equality filters of a statistics scope in the
// order year, sector, product, region, department. Empty values are
// skipped. The commune filter is not part of it.
func (f FilterSpec) Predicates() []production.Predicate {
	preds := make([]production.Predicate, 0, 6)
	if f.hasYear {
		preds = append(preds, production.Eq(production.FieldYear, f.year))
	}
	for _, p := range []struct {
		field production.Field
		value string
	}{
		{production.FieldSector, f.sector},
		{production.FieldProduct, f.product},
		{production.FieldRegion, f.region},
		{production.FieldDepartment, f.department},
	} {
		if p.value != "" {
			preds = append(preds, production.Eq(p.field, p.value))
		}
	}
	return preds
}

// MapPredicates is Predicates followed by the commune filter, for the
// production map layer.
func (f FilterSpec) MapPredicates() []production.Predicate {
	preds := f.Predicates()
	if f.commune != "" {
		preds = append(preds, production.Eq(production.FieldCommune, f.commune))
	}
	return preds
}

// Level derives the comparison level; a department filter wins over a
// region filter.
func (f FilterSpec) Level() Level {
	switch {
	case f.department != "":
		return Departmental
	case f.region != "":
		return Regional
	}
	return National
}

// ComparisonTitle is the display title of the breakdown at f's level.
func (f FilterSpec) ComparisonTitle() string {
	switch f.Level() {
	case Departmental:
		return "Répartition par commune dans le " + f.department
	case Regional:
		return "Répartition par département en région " + f.region
	}
	return "Répartition nationale par région"
}
