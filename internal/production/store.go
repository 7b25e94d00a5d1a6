package production

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCommuneNotFound = errors.New("commune not found")

const recordColumns = `
	COALESCE(adm3_pcode, '') AS adm3_pcode,
	COALESCE(adm3_name1, '') AS adm3_name1,
	COALESCE(adm2_name1, '') AS adm2_name1,
	COALESCE(adm1_name1, '') AS adm1_name1,
	COALESCE(filiere, '') AS filiere,
	COALESCE(produit, '') AS produit,
	COALESCE(annee, 0) AS annee,
	COALESCE(tonnage, 0) AS tonnage`

// Store reads and appends production rows through a shared gorm pool.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// where applies preds as bound equality conditions. Column names only come
// from the fixed field table.
func where(q *gorm.DB, preds []Predicate) (*gorm.DB, error) {
	for _, p := range preds {
		col, err := p.Field.Column()
		if err != nil {
			return nil, err
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: p.Value})
	}
	return q, nil
}

// Scan returns every record matching preds, in the table's natural order.
func (s *Store) Scan(ctx context.Context, preds []Predicate) ([]Record, error) {
	q, err := where(s.db.WithContext(ctx).Model(&Production{}).Select(recordColumns), preds)
	if err != nil {
		return nil, err
	}

	var out []Record
	if err := q.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("scan productions: %w", err)
	}
	return out, nil
}

type geoRow struct {
	Record
	Geometry *string `gorm:"column:geometry"`
}

// ScanGeo is Scan with each row's geometry serialised by PostGIS.
func (s *Store) ScanGeo(ctx context.Context, preds []Predicate) ([]GeoRecord, error) {
	base := s.db.WithContext(ctx).Model(&Production{}).
		Select(recordColumns + `, ST_AsGeoJSON(geom) AS geometry`)
	q, err := where(base, preds)
	if err != nil {
		return nil, err
	}

	var rows []geoRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan production features: %w", err)
	}

	out := make([]GeoRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, GeoRecord{Record: r.Record, Geometry: rawGeometry(r.Geometry)})
	}
	return out, nil
}

// ZoneShapes returns the geometry of every row whose f column equals name.
// An empty name returns every row with a commune name.
func (s *Store) ZoneShapes(ctx context.Context, f Field, name string) ([]Shape, error) {
	col, err := f.Column()
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&Production{}).
		Select(fmt.Sprintf("%s AS name, ST_AsGeoJSON(geom) AS geometry", col))
	if name == "" {
		q = q.Where(clause.Neq{Column: clause.Column{Name: col}, Value: nil})
	} else {
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: name})
	}

	var rows []struct {
		Name     string
		Geometry *string
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan %s shapes: %w", f, err)
	}

	out := make([]Shape, 0, len(rows))
	for _, r := range rows {
		out = append(out, Shape{Name: r.Name, Geometry: rawGeometry(r.Geometry)})
	}
	return out, nil
}

func rawGeometry(s *string) []byte {
	if s == nil || *s == "" {
		return []byte("null")
	}
	return []byte(*s)
}

const insertFromTemplate = `
	INSERT INTO productions (
		geom, adm3_name1, adm3_pcode, adm2_name1, adm1_name1,
		produit, tonnage, annee, filiere
	)
	SELECT
		geom, adm3_name1, adm3_pcode, adm2_name1, adm1_name1,
		?, ?, ?, ?
	FROM productions
	WHERE adm3_name1 = ?
	LIMIT 1
	RETURNING id`

// AddFromTemplate appends p, copying geometry and hierarchy from an
// existing row of p.SourceCommune.
func (s *Store) AddFromTemplate(ctx context.Context, p NewProduction) (int64, error) {
	p = p.WithDefaults()

	var ids []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(insertFromTemplate,
			p.Product, *p.Tonnage, *p.Year, p.Sector, p.SourceCommune,
		).Scan(&ids).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert production for %q: %w", p.SourceCommune, err)
	}
	if len(ids) == 0 {
		return 0, ErrCommuneNotFound
	}
	return ids[0], nil
}
