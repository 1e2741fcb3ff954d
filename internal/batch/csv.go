package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/failsight/internal/model"
)

// Column names of the AI4I predictive maintenance dataset that are not features.
const (
	ColumnType      = "Type"
	ColumnUDI       = "UDI"
	ColumnProductID = "Product ID"
)

var (
	// ErrEmptyInput is returned when the CSV has no header row.
	ErrEmptyInput = errors.New("empty CSV input")

	// ErrMissingColumn is returned when a feature column is absent from the header.
	ErrMissingColumn = errors.New("missing CSV column")
)

// Reading is one machine's sensor readings from a CSV row.
type Reading struct {
	// Label identifies the row in output: Product ID, then UDI, then "row N".
	Label string
	// Line is the 1-based line number in the input.
	Line     int
	Features model.FeatureVector
}

// ReadReadings parses CSV in the AI4I dataset layout. The header must name
// every numeric feature; Type, UDI and Product ID are optional and other
// columns (such as the failure labels) are ignored. Cells that do not parse
// become NaN, as with form input.
func ReadReadings(r io.Reader) ([]Reading, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range model.NumericFeatures {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	var readings []Reading
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)

		get := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		form := rowValues{}
		for _, name := range model.NumericFeatures {
			form[name] = get(name)
		}
		form[model.FieldEquipmentType] = strings.ToUpper(strings.TrimSpace(get(ColumnType)))

		readings = append(readings, Reading{
			Label:    rowLabel(get(ColumnProductID), get(ColumnUDI), len(readings)+1),
			Line:     line,
			Features: model.BuildFeatureVector(form),
		})
	}
	return readings, nil
}

// rowValues adapts a CSV row to model.FormValues.
type rowValues map[string]string

func (v rowValues) Get(key string) string {
	return v[key]
}

func rowLabel(productID, udi string, row int) string {
	if s := strings.TrimSpace(productID); s != "" {
		return s
	}
	if s := strings.TrimSpace(udi); s != "" {
		return s
	}
	return "row " + strconv.Itoa(row)
}
