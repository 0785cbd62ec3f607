package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/inference-sim/cachesim/sim"
)

// PlotTable is a CSV file shared by many runs for comparative plotting. Each
// row is keyed by the value in the first column (a configuration parameter
// such as a layer size) and every other column is one series.
type PlotTable struct {
	Path      string
	KeyColumn string
}

// Upsert sets series=value on the row for key, creating the file, the row or
// the column as needed. Other rows and columns are preserved; cells of new
// rows or columns start at "0".
func (p PlotTable) Upsert(key string, values map[string]string) error {
	rows, err := p.read()
	if err != nil {
		return err
	}
	header := rows[0]

	series := make([]string, 0, len(values))
	for s := range values {
		series = append(series, s)
	}
	slices.Sort(series)
	for _, s := range series {
		if !slices.Contains(header[1:], s) {
			header = append(header, s)
			for i := 1; i < len(rows); i++ {
				rows[i] = append(rows[i], "0")
			}
		}
	}
	rows[0] = header

	row := -1
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) > 0 && rows[i][0] == key {
			row = i
			break
		}
	}
	if row < 0 {
		newRow := make([]string, len(header))
		newRow[0] = key
		for i := 1; i < len(newRow); i++ {
			newRow[i] = "0"
		}
		rows = append(rows, newRow)
		row = len(rows) - 1
	}
	for _, s := range series {
		rows[row][slices.Index(header[1:], s)+1] = values[s]
	}
	return p.write(rows)
}

func (p PlotTable) read() ([][]string, error) {
	file, err := os.Open(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return [][]string{{p.KeyColumn}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening plot table %s: %w", p.Path, err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading plot table %s: %w", p.Path, err)
	}
	if len(rows) == 0 {
		return [][]string{{p.KeyColumn}}, nil
	}
	// pad short rows so every row matches the header
	for i := 1; i < len(rows); i++ {
		for len(rows[i]) < len(rows[0]) {
			rows[i] = append(rows[i], "0")
		}
	}
	return rows, nil
}

func (p PlotTable) write(rows [][]string) error {
	file, err := os.Create(p.Path)
	if err != nil {
		return fmt.Errorf("creating plot table %s: %w", p.Path, err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("writing plot table %s: %w", p.Path, err)
	}
	return nil
}

// HitMissSeries turns a snapshot into per-layer plot series, e.g.
// {"L0_hits": "12", "L0_misses": "4", ...}.
func HitMissSeries(m *sim.Metrics) map[string]string {
	out := make(map[string]string, 2*len(m.Layers))
	for _, l := range m.Layers {
		out[l.Name+"_hits"] = strconv.FormatInt(l.Hits, 10)
		out[l.Name+"_misses"] = strconv.FormatInt(l.Misses, 10)
	}
	return out
}
