// Package citycode loads the static city table that maps city names to the
// map provider's city ids.
package citycode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrCityNotFound = errors.New("city not found")

type CityRef struct {
	Id   string
	Name string
}

func (c CityRef) String() string {
	return fmt.Sprintf("id: %s, name: %s", c.Id, c.Name)
}

type Table struct {
	rows []CityRef
}

// Parse reads `id,name` rows. Rows with fewer than two columns are
// skipped, extra columns are ignored.
func Parse(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []CityRef
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read city table: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		id := strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff"))
		name := strings.TrimSpace(record[1])
		if id == "" || name == "" {
			continue
		}
		rows = append(rows, CityRef{Id: id, Name: name})
	}
	return Table{rows: rows}, nil
}

func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Lookup returns the first row whose name contains `name`, so "南京"
// finds "南京市".
func (t Table) Lookup(name string) (CityRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CityRef{}, fmt.Errorf("%w: empty name", ErrCityNotFound)
	}
	for _, row := range t.rows {
		if strings.Contains(row.Name, name) {
			return row, nil
		}
	}
	return CityRef{}, fmt.Errorf("%w: %s", ErrCityNotFound, name)
}

// Search returns every row whose name contains `query`.
func (t Table) Search(query string) []CityRef {
	var out []CityRef
	for _, row := range t.rows {
		if strings.Contains(row.Name, query) {
			out = append(out, row)
		}
	}
	return out
}

func (t Table) Len() int {
	return len(t.rows)
}
