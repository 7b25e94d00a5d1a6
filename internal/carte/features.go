package carte

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bassins/bassins-api/internal/production"
	"github.com/bassins/bassins-api/internal/stats"
)

// Feature is a GeoJSON Feature whose geometry is passed through as produced
// by PostGIS.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties any             `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func newCollection(n int) FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, n)}
}

// NameProperties labels a plain zone shape.
type NameProperties struct {
	Name string `json:"name"`
}

// ProductionProperties describes one production record on the map.
type ProductionProperties struct {
	Commune     string  `json:"commune"`
	Departement string  `json:"departement"`
	Region      string  `json:"region"`
	Annee       int     `json:"annee"`
	Filiere     string  `json:"filiere"`
	Produit     string  `json:"produit"`
	Tonnage     float64 `json:"tonnage"`
}

// GeoStore is the read side of the productions table used for map layers.
type GeoStore interface {
	ScanGeo(ctx context.Context, preds []production.Predicate) ([]production.GeoRecord, error)
	ZoneShapes(ctx context.Context, f production.Field, name string) ([]production.Shape, error)
}

// ErrUnknownLevel is returned for a zone level other than commune,
// departement or region. It matches stats.ErrNotFound.
var ErrUnknownLevel = fmt.Errorf("unknown zone level: %w", stats.ErrNotFound)

// ParseLevel maps the level query parameter to the field it names. An empty
// level means commune.
func ParseLevel(level string) (production.Field, error) {
	switch level {
	case "", "commune":
		return production.FieldCommune, nil
	case "departement":
		return production.FieldDepartment, nil
	case "region":
		return production.FieldRegion, nil
	}
	return 0, ErrUnknownLevel
}

// Builder turns store rows into feature collections.
type Builder struct {
	store   GeoStore
	timeout time.Duration
}

func NewBuilder(store GeoStore, timeout time.Duration) *Builder {
	return &Builder{store: store, timeout: timeout}
}

func (b *Builder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Productions returns one feature per production record matching f.
func (b *Builder) Productions(ctx context.Context, f stats.FilterSpec) (FeatureCollection, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	recs, err := b.store.ScanGeo(ctx, f.MapPredicates())
	if err != nil {
		return FeatureCollection{}, stats.StoreFailure(err)
	}

	fc := newCollection(len(recs))
	for _, r := range recs {
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: r.Geometry,
			Properties: ProductionProperties{
				Commune:     r.CommuneName,
				Departement: r.DepartmentName,
				Region:      r.RegionName,
				Annee:       r.Year,
				Filiere:     r.Sector,
				Produit:     r.Product,
				Tonnage:     r.Tonnage,
			},
		})
	}
	return fc, nil
}

// Country returns every commune shape.
func (b *Builder) Country(ctx context.Context) (FeatureCollection, error) {
	return b.shapes(ctx, production.FieldCommune, "", true)
}

// Zone returns the shapes of the zone called name at the given level.
// An unknown level or a zone without shapes is stats.ErrNotFound.
func (b *Builder) Zone(ctx context.Context, name, level string) (FeatureCollection, error) {
	field, err := ParseLevel(level)
	if err != nil {
		return FeatureCollection{}, err
	}
	return b.shapes(ctx, field, name, false)
}

func (b *Builder) shapes(ctx context.Context, f production.Field, name string, allowEmpty bool) (FeatureCollection, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	shapes, err := b.store.ZoneShapes(ctx, f, name)
	if err != nil {
		return FeatureCollection{}, stats.StoreFailure(err)
	}
	if len(shapes) == 0 && !allowEmpty {
		return FeatureCollection{}, stats.ErrNotFound
	}

	fc := newCollection(len(shapes))
	for _, s := range shapes {
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   s.Geometry,
			Properties: NameProperties{Name: s.Name},
		})
	}
	return fc, nil
}
