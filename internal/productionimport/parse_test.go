package productionimport

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	in := "\ufeffCommune,Produit,Tonnage,Annee,Filiere\n" +
		"Garoua 1,Bovins,\"120,5\",2024,Elevage\n" +
		",,,,\n" +
		"Maroua 2,Ovins,80,2024,Elevage\n"

	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{Line: 2, Commune: "Garoua 1", Product: "Bovins", Tonnage: 120.5, Year: 2024, Sector: "Elevage"}, rows[0])
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, 80.0, rows[1].Tonnage)
}

func TestParseCSVErrors(t *testing.T) {
	const header = "commune,produit,tonnage,annee,filiere\n"
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", header, "no data rows"},
		{"missing column", "commune,produit,tonnage,annee\nA,B,1,2024\n", "missing required column: filiere"},
		{"no commune", header + ",Ovins,1,2024,Elevage\n", "row 2: commune is required"},
		{"bad tonnage", header + "A,Ovins,beaucoup,2024,Elevage\n", "row 2: tonnage"},
		{"negative tonnage", header + "A,Ovins,-3,2024,Elevage\n", "row 2: tonnage"},
		{"bad year", header + "A,Ovins,3,20x4,Elevage\n", "row 2: annee"},
		{"duplicate", header + "A,Ovins,3,2024,Elevage\nA,Ovins,4,2024,Elevage\n", "row 3: duplicate of row 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	data := [][]any{
		{"commune", "produit", "tonnage", "annee", "filiere"},
		{"Bafoussam 1", "Porcins", 42.25, 2023, "Elevage"},
	}
	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "productions.xlsx")
	require.NoError(t, f.SaveAs(path))

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bafoussam 1", rows[0].Commune)
	assert.Equal(t, 42.25, rows[0].Tonnage)
	assert.Equal(t, 2023, rows[0].Year)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load("productions.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestCommunes(t *testing.T) {
	rows := []Row{{Commune: "B"}, {Commune: "A"}, {Commune: "B"}}
	assert.Equal(t, []string{"B", "A"}, Communes(rows))
}
