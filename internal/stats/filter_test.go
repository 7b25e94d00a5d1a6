package stats_test

import (
	"testing"

	"github.com/bassins/bassins-api/internal/production"
	"github.com/bassins/bassins-api/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSpec_DepartmentWinsOverRegion(t *testing.T) {
	f := mustSpec(t, stats.Params{Year: "2022", Sector: "Elevage", Region: "Centre", Department: "Mfoundi"})

	assert.Equal(t, stats.Departmental, f.Level())
	assert.Equal(t, production.FieldCommune, f.Level().GroupField())
	assert.Equal(t, "Répartition par commune dans le Mfoundi", f.ComparisonTitle())
}

func TestFilterSpec_Levels(t *testing.T) {
	cases := []struct {
		params stats.Params
		level  stats.Level
		field  production.Field
	}{
		{stats.Params{}, stats.National, production.FieldRegion},
		{stats.Params{Region: "Centre"}, stats.Regional, production.FieldDepartment},
		{stats.Params{Department: "Mfoundi"}, stats.Departmental, production.FieldCommune},
		{stats.Params{Region: "  "}, stats.National, production.FieldRegion},
	}
	for _, tc := range cases {
		f := mustSpec(t, tc.params)
		assert.Equal(t, tc.level, f.Level(), "%+v", tc.params)
		assert.Equal(t, tc.field, f.Level().GroupField(), "%+v", tc.params)
	}
}

func TestFilterSpec_PredicateOrder(t *testing.T) {
	f := mustSpec(t, stats.Params{
		Commune:    "Yaoundé 1",
		Department: "Mfoundi",
		Region:     "Centre",
		Product:    "Ovins",
		Sector:     "Elevage",
		Year:       " 2022 ",
	})

	scope := []production.Predicate{
		production.Eq(production.FieldYear, 2022),
		production.Eq(production.FieldSector, "Elevage"),
		production.Eq(production.FieldProduct, "Ovins"),
		production.Eq(production.FieldRegion, "Centre"),
		production.Eq(production.FieldDepartment, "Mfoundi"),
	}
	assert.Equal(t, scope, f.Predicates())
	assert.Equal(t, append(scope, production.Eq(production.FieldCommune, "Yaoundé 1")), f.MapPredicates())
}

func TestFilterSpec_SkipsEmptyValues(t *testing.T) {
	f := mustSpec(t, stats.Params{Sector: "Elevage", Department: "Mfoundi"})

	assert.Equal(t, []production.Predicate{
		production.Eq(production.FieldSector, "Elevage"),
		production.Eq(production.FieldDepartment, "Mfoundi"),
	}, f.Predicates())
	assert.Empty(t, mustSpec(t, stats.Params{}).Predicates())
}

func TestFilterSpec_InvalidYear(t *testing.T) {
	_, err := stats.NewFilterSpec(stats.Params{Year: "deux mille"})

	var verr *stats.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "annee", verr.Field)
}

func TestFilterSpec_NormalisesToNFC(t *testing.T) {
	// "Yaounde" followed by a combining acute accent.
	f := mustSpec(t, stats.Params{Commune: "Yaounde\u0301 1"})

	assert.Equal(t, "Yaound\u00e9 1", f.Commune())
}

func TestFilterSpec_RequireScope(t *testing.T) {
	assert.NoError(t, mustSpec(t, stats.Params{Year: "2022", Sector: "S"}).RequireScope())

	var verr *stats.ValidationError
	require.ErrorAs(t, mustSpec(t, stats.Params{Sector: "S"}).RequireScope(), &verr)
	assert.Equal(t, "annee", verr.Field)
	require.ErrorAs(t, mustSpec(t, stats.Params{Year: "2022"}).RequireScope(), &verr)
	assert.Equal(t, "filiere", verr.Field)
}
