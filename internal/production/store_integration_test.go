package production_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/bassins/bassins-api/internal/db"
	"github.com/bassins/bassins-api/internal/production"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// conn is nil when no database is configured.
var conn *gorm.DB

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		os.Exit(m.Run())
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	var err error
	conn, err = db.Connect(context.Background(), dsn, log)
	if err != nil {
		log.WithError(err).Fatal("connect")
	}
	if err := db.EnsurePostGIS(conn); err != nil {
		log.WithError(err).Fatal("postgis")
	}
	if err := production.Migrate(conn); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	code := m.Run()
	_ = db.Close(conn)
	os.Exit(code)
}

type fixture struct {
	store  *production.Store
	region string
}

// seed opens a transaction rolled back at cleanup and inserts three rows in
// a region name unique to the test.
func seed(t *testing.T) fixture {
	t.Helper()
	if conn == nil {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	t.Cleanup(func() { tx.Rollback() })

	region := "Region-" + uuid.New().String()[:8]
	rows := []struct {
		pcode, commune, dept, sector, product string
		year                                  int
		tonnage                               float64
	}{
		{"T001", region + "-A", region + "-D1", "Elevage", "Bovins", 2024, 100},
		{"T001", region + "-A", region + "-D1", "Elevage", "Ovins", 2024, 20},
		{"T002", region + "-B", region + "-D2", "Agriculture", "Mais", 2023, 50},
	}
	for _, r := range rows {
		err := tx.Exec(`
			INSERT INTO productions (adm3_pcode, adm3_name1, adm2_name1, adm1_name1, filiere, produit, annee, tonnage, geom)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ST_GeomFromText('POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))', 4326))`,
			r.pcode, r.commune, r.dept, region, r.sector, r.product, r.year, r.tonnage,
		).Error
		if err != nil {
			t.Fatalf("insert fixture: %v", err)
		}
	}

	return fixture{store: production.NewStore(tx), region: region}
}

func TestScanFilters(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	got, err := f.store.Scan(ctx, []production.Predicate{
		production.Eq(production.FieldYear, 2024),
		production.Eq(production.FieldSector, "Elevage"),
		production.Eq(production.FieldRegion, f.region),
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	for _, r := range got {
		if r.CommuneName != f.region+"-A" || r.Year != 2024 {
			t.Errorf("unexpected row %+v", r)
		}
	}
}

func TestScanGeoReturnsGeoJSON(t *testing.T) {
	f := seed(t)

	got, err := f.store.ScanGeo(context.Background(), []production.Predicate{
		production.Eq(production.FieldRegion, f.region),
		production.Eq(production.FieldCommune, f.region+"-B"),
	})
	if err != nil {
		t.Fatalf("scan geo: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if !strings.HasPrefix(string(got[0].Geometry), `{"type":"Polygon"`) {
		t.Errorf("unexpected geometry %s", got[0].Geometry)
	}
}

func TestZoneShapes(t *testing.T) {
	f := seed(t)

	got, err := f.store.ZoneShapes(context.Background(), production.FieldDepartment, f.region+"-D1")
	if err != nil {
		t.Fatalf("zone shapes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(got))
	}
	if got[0].Name != f.region+"-D1" {
		t.Errorf("unexpected name %q", got[0].Name)
	}
}

func TestReferenceLists(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	depts, err := f.store.Departments(ctx, f.region)
	if err != nil {
		t.Fatalf("departments: %v", err)
	}
	if len(depts) != 2 || depts[0] != f.region+"-D1" {
		t.Errorf("unexpected departments %v", depts)
	}

	communes, err := f.store.Communes(ctx, f.region+"-D1")
	if err != nil {
		t.Fatalf("communes: %v", err)
	}
	if len(communes) != 1 || communes[0].Code != "T001" {
		t.Errorf("unexpected communes %+v", communes)
	}
}

func TestAddFromTemplate(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	id, err := f.store.AddFromTemplate(ctx, production.NewProduction{SourceCommune: f.region + "-B"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a new id")
	}

	got, err := f.store.Scan(ctx, []production.Predicate{
		production.Eq(production.FieldRegion, f.region),
		production.Eq(production.FieldProduct, production.DefaultProduct),
		production.Eq(production.FieldYear, production.DefaultYear),
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 1 || got[0].CommuneCode != "T002" || got[0].Tonnage != production.DefaultTonnage {
		t.Errorf("unexpected appended rows %+v", got)
	}

	_, err = f.store.AddFromTemplate(ctx, production.NewProduction{SourceCommune: f.region + "-missing"})
	if !errors.Is(err, production.ErrCommuneNotFound) {
		t.Errorf("expected ErrCommuneNotFound, got %v", err)
	}
}
