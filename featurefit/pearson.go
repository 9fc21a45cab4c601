package featurefit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// LoadPearson reads a tab-separated correlation table with Concept and
// correlation columns and returns the per-concept values. The literal "n/a"
// parses as 0; anything else unparseable fails the load.
func LoadPearson(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty correlation file")
	}

	conceptCol := findHeaderColumn(rows[0], "Concept")
	valueCol := findHeaderColumn(rows[0], "correlation")
	if conceptCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("%s is missing a Concept or correlation column", filepath.Base(path))
	}

	values := make(map[string]float64, len(rows)-1)
	for i, row := range rows[1:] {
		if conceptCol >= len(row) || valueCol >= len(row) {
			continue
		}
		concept := NormalizeToken(row[conceptCol])
		if concept == "" {
			continue
		}
		raw := strings.TrimSpace(row[valueCol])
		if raw == "n/a" {
			values[concept] = 0
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: parse correlation: %w", filepath.Base(path), i+2, err)
		}
		values[concept] = v
	}
	return values, nil
}

// DomainAverages reduces per-concept values to a mean and population variance
// per domain. Domains with no covered concepts are omitted.
func DomainAverages(values map[string]float64, domains map[string][]string) (map[string]float64, map[string]float64) {
	means := make(map[string]float64, len(domains))
	vars := make(map[string]float64, len(domains))
	for domain, concepts := range domains {
		var xs []float64
		for _, c := range concepts {
			if v, ok := values[c]; ok {
				xs = append(xs, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		means[domain] = stat.Mean(xs, nil)
		vars[domain] = popVariance(xs)
	}
	return means, vars
}

func findHeaderColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(NormalizeToken(col), name) {
			return i
		}
	}
	return -1
}
