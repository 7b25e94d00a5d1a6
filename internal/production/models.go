package production

import (
	"encoding/json"
)

// Production is one row of the productions table: the tonnage of a product
// for a commune, a year and a filiere, with the commune's geometry attached.
// The administrative hierarchy is denormalised on every row.
type Production struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	CommuneCode    string  `gorm:"column:adm3_pcode;size:20;index" json:"adm3_pcode"`
	CommuneName    string  `gorm:"column:adm3_name1;index" json:"adm3_name1"`
	DepartmentName string  `gorm:"column:adm2_name1;index" json:"adm2_name1"`
	RegionName     string  `gorm:"column:adm1_name1;index" json:"adm1_name1"`
	Sector         string  `gorm:"column:filiere;index:idx_productions_scope" json:"filiere"`
	Product        string  `gorm:"column:produit" json:"produit"`
	Year           int     `gorm:"column:annee;index:idx_productions_scope" json:"annee"`
	Tonnage        float64 `gorm:"column:tonnage;not null;default:0" json:"tonnage"`

	// Stored as a PostGIS MULTIPOLYGON/POLYGON in WGS84. Only read back
	// through ST_AsGeoJSON.
	Geometry string `gorm:"column:geom;type:geometry(Geometry,4326)" json:"-"`
}

func (Production) TableName() string {
	return "productions"
}

// Record is the read-side snapshot of a production row handed to the
// ranking and aggregation code. It never carries geometry.
type Record struct {
	CommuneCode    string  `gorm:"column:adm3_pcode"`
	CommuneName    string  `gorm:"column:adm3_name1"`
	DepartmentName string  `gorm:"column:adm2_name1"`
	RegionName     string  `gorm:"column:adm1_name1"`
	Sector         string  `gorm:"column:filiere"`
	Product        string  `gorm:"column:produit"`
	Year           int     `gorm:"column:annee"`
	Tonnage        float64 `gorm:"column:tonnage"`
}

// GeoRecord is a Record with its geometry already serialised as GeoJSON.
type GeoRecord struct {
	Record
	Geometry json.RawMessage
}

// Shape is a named geometry, used for the plain zone layers.
type Shape struct {
	Name     string
	Geometry json.RawMessage
}

// Commune is one entry of the commune reference list.
type Commune struct {
	Name string `json:"nom" gorm:"column:nom"`
	Code string `json:"adm3_pcode" gorm:"column:adm3_pcode"`
}

// NewProduction describes a production appended from an existing commune row.
// Tonnage and Year are pointers so an explicit zero stays distinct from an
// absent field.
type NewProduction struct {
	SourceCommune string   `json:"source_commune"`
	Product       string   `json:"produit"`
	Tonnage       *float64 `json:"tonnage"`
	Year          *int     `json:"annee"`
	Sector        string   `json:"filiere"`
}

// Defaults applied by WithDefaults when a field is absent.
const (
	DefaultProduct = "Ovins"
	DefaultTonnage = 500
	DefaultYear    = 2026
	DefaultSector  = "Elevage"
)

// WithDefaults fills the absent fields of p.
func (p NewProduction) WithDefaults() NewProduction {
	if p.Product == "" {
		p.Product = DefaultProduct
	}
	if p.Tonnage == nil {
		t := float64(DefaultTonnage)
		p.Tonnage = &t
	}
	if p.Year == nil {
		y := DefaultYear
		p.Year = &y
	}
	if p.Sector == "" {
		p.Sector = DefaultSector
	}
	return p
}
