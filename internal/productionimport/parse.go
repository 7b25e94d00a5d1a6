package productionimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Row struct {
	Line    int
	Commune string
	Product string
	Tonnage float64
	Year    int
	Sector  string
}

var required = []string{"commune", "produit", "tonnage", "annee", "filiere"}

// Load reads rows from a .csv or .xlsx file depending on its extension.
func Load(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(path)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseCSV(f)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

func ParseCSV(in io.Reader) ([]Row, error) {
	r := csv.NewReader(bufio.NewReader(in))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	return parseRecords(records)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return parseRecords(records)
}

// parseTonnage accepts both "12.5" and "12,5".
func parseTonnage(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) < 2 {
		return nil, errors.New("file has no data rows")
	}

	header := records[0]
	// Handle BOM on first header cell
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range required {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}

	type key struct {
		commune, product, sector string
		year                     int
	}
	seen := map[key]int{}
	var out []Row

	for rowIdx := 1; rowIdx < len(records); rowIdx++ {
		rec := records[rowIdx]
		line := rowIdx + 1
		get := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		if strings.Join(rec, "") == "" {
			continue
		}

		row := Row{
			Line:    line,
			Commune: get("commune"),
			Product: get("produit"),
			Sector:  get("filiere"),
		}
		if row.Commune == "" {
			return nil, fmt.Errorf("row %d: commune is required", line)
		}
		if row.Product == "" {
			return nil, fmt.Errorf("row %d: produit is required", line)
		}
		if row.Sector == "" {
			return nil, fmt.Errorf("row %d: filiere is required", line)
		}

		t, err := parseTonnage(get("tonnage"))
		if err != nil || t < 0 {
			return nil, fmt.Errorf("row %d: tonnage must be a non-negative number (got %q)", line, get("tonnage"))
		}
		row.Tonnage = t

		y, err := strconv.Atoi(get("annee"))
		if err != nil || y < 1900 || y > 2100 {
			return nil, fmt.Errorf("row %d: annee must be a year (got %q)", line, get("annee"))
		}
		row.Year = y

		k := key{row.Commune, row.Product, row.Sector, row.Year}
		if prev, dup := seen[k]; dup {
			return nil, fmt.Errorf("row %d: duplicate of row %d", line, prev)
		}
		seen[k] = line

		out = append(out, row)
	}

	if len(out) == 0 {
		return nil, errors.New("file has no data rows")
	}
	return out, nil
}

// Communes returns the distinct commune names of rows, in first-seen order.
func Communes(rows []Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		if !seen[r.Commune] {
			seen[r.Commune] = true
			out = append(out, r.Commune)
		}
	}
	return out
}
