package production

import "fmt"

// Field names a filterable or groupable attribute of a production record.
type Field int

const (
	FieldYear Field = iota
	FieldSector
	FieldProduct
	FieldRegion
	FieldDepartment
	FieldCommune
)

// columns is the only place field identifiers become SQL column names.
var columns = map[Field]string{
	FieldYear:       "annee",
	FieldSector:     "filiere",
	FieldProduct:    "produit",
	FieldRegion:     "adm1_name1",
	FieldDepartment: "adm2_name1",
	FieldCommune:    "adm3_name1",
}

func (f Field) String() string {
	switch f {
	case FieldYear:
		return "year"
	case FieldSector:
		return "sector"
	case FieldProduct:
		return "product"
	case FieldRegion:
		return "region"
	case FieldDepartment:
		return "department"
	case FieldCommune:
		return "commune"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Column returns the table column backing f.
func (f Field) Column() (string, error) {
	col, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("unknown field %d", int(f))
	}
	return col, nil
}

// Value returns the record's value for a string-valued field.
func (r Record) Value(f Field) string {
	switch f {
	case FieldSector:
		return r.Sector
	case FieldProduct:
		return r.Product
	case FieldRegion:
		return r.RegionName
	case FieldDepartment:
		return r.DepartmentName
	case FieldCommune:
		return r.CommuneName
	case FieldYear:
		return fmt.Sprint(r.Year)
	}
	return ""
}

// Predicate is an equality test of a field against a value. Year predicates
// carry an int, all others a string.
type Predicate struct {
	Field Field
	Value any
}

func Eq(f Field, v any) Predicate {
	return Predicate{Field: f, Value: v}
}

// Matches reports whether r satisfies every predicate.
func Matches(r Record, preds []Predicate) bool {
	for _, p := range preds {
		if p.Field == FieldYear {
			y, ok := p.Value.(int)
			if !ok || r.Year != y {
				return false
			}
			continue
		}
		s, ok := p.Value.(string)
		if !ok || r.Value(p.Field) != s {
			return false
		}
	}
	return true
}
