package production

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"
)

// distinct plucks the sorted distinct non-null values of f's column,
// restricted by preds.
func (s *Store) distinct(ctx context.Context, f Field, dest any, preds ...Predicate) error {
	col, err := f.Column()
	if err != nil {
		return err
	}

	q := s.db.WithContext(ctx).Model(&Production{}).
		Where(clause.Neq{Column: clause.Column{Name: col}, Value: nil})
	if q, err = where(q, preds); err != nil {
		return err
	}

	if err := q.Distinct(col).Order(col).Pluck(col, dest).Error; err != nil {
		return fmt.Errorf("list %s values: %w", f, err)
	}
	return nil
}

func (s *Store) Regions(ctx context.Context) ([]string, error) {
	var out []string
	err := s.distinct(ctx, FieldRegion, &out)
	return out, err
}

func (s *Store) Departments(ctx context.Context, region string) ([]string, error) {
	var out []string
	err := s.distinct(ctx, FieldDepartment, &out, Eq(FieldRegion, region))
	return out, err
}

func (s *Store) Years(ctx context.Context) ([]int, error) {
	var out []int
	err := s.distinct(ctx, FieldYear, &out)
	return out, err
}

func (s *Store) Sectors(ctx context.Context) ([]string, error) {
	var out []string
	err := s.distinct(ctx, FieldSector, &out)
	return out, err
}

func (s *Store) Products(ctx context.Context, sector string) ([]string, error) {
	var out []string
	err := s.distinct(ctx, FieldProduct, &out, Eq(FieldSector, sector))
	return out, err
}

// Communes lists the communes of a department with their pcode.
func (s *Store) Communes(ctx context.Context, department string) ([]Commune, error) {
	var out []Commune
	err := s.db.WithContext(ctx).Model(&Production{}).
		Distinct("adm3_name1 AS nom", "adm3_pcode").
		Where("adm2_name1 = ?", department).
		Order("nom").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list communes of %q: %w", department, err)
	}
	return out, nil
}
