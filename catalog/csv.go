package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/cohort/core"
)

// csvColumns are the required header columns, in any order.
var csvColumns = []string{"code", "description", "category", "theme", "type", "context"}

// CSVSource reads variable records from a tabular CSV file with header
// columns code, description, category, theme, type, context.
type CSVSource struct {
	Path string
}

var _ Source = CSVSource{}

// Variables reads and parses the CSV file.
func (s CSVSource) Variables(ctx context.Context) ([]*core.Variable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range csvColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var variables []*core.Variable
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		variables = append(variables, &core.Variable{
			Code:        row[columns["code"]],
			Description: row[columns["description"]],
			Category:    row[columns["category"]],
			Theme:       row[columns["theme"]],
			Type:        row[columns["type"]],
			Context:     row[columns["context"]],
		})
	}

	return variables, nil
}
