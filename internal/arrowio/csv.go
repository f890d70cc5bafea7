package arrowio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/paveg/skewjoin/internal/dataset"
)

// CSVOptions configures CSV loading.
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma).
	Delimiter rune
	// Header indicates whether the first row contains column names.
	Header bool
	// Partitions is the partition count of the resulting dataset.
	Partitions int
}

// DefaultCSVOptions returns default CSV options.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:  ',',
		Header:     true,
		Partitions: 8,
	}
}

// ReadCSV loads CSV data into a partitioned dataset with per-cell type
// inference: int64, then float64, then bool, falling back to string. Empty
// cells become nil fields and therefore null join keys.
func ReadCSV(r io.Reader, opts CSVOptions) (dataset.Dataset, []string, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = opts.Delimiter

	raw, err := csvReader.ReadAll()
	if err != nil {
		return dataset.Dataset{}, nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(raw) == 0 {
		return dataset.Empty(opts.Partitions), nil, nil
	}

	var headers []string
	if opts.Header {
		headers = raw[0]
		raw = raw[1:]
	}

	rows := make([]dataset.Record, len(raw))
	for i, cells := range raw {
		row := make(dataset.Record, len(cells))
		for c, cell := range cells {
			row[c] = inferCell(cell)
		}
		rows[i] = row
	}
	return dataset.FromRecords(rows, opts.Partitions), headers, nil
}

func inferCell(cell string) any {
	if cell == "" {
		return nil
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(cell); err == nil {
		return b
	}
	return cell
}
