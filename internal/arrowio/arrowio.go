// Package arrowio bridges Apache Arrow record batches and the engine's
// partitioned-dataset model. Columnar inputs are converted to row records for
// joining, and join output can be rendered back into Arrow batches for
// columnar consumers.
//
// Memory management: returned Arrow records must be released by the caller
// with defer patterns; conversion to row form never retains the source batch.
package arrowio

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/errors"
)

// RowsFromRecord converts one Arrow record batch into row records. Null cells
// become nil fields, so a null join-key column value classifies and joins
// under the engine's null semantics.
func RowsFromRecord(rec arrow.Record) ([]dataset.Record, error) {
	numRows := int(rec.NumRows())
	numCols := int(rec.NumCols())

	rows := make([]dataset.Record, numRows)
	for i := range rows {
		rows[i] = make(dataset.Record, numCols)
	}

	for c := 0; c < numCols; c++ {
		col := rec.Column(c)
		if err := fillColumn(rows, c, col); err != nil {
			return nil, errors.NewInvalidInputError("RowsFromRecord",
				fmt.Sprintf("column %q: %v", rec.ColumnName(c), err))
		}
	}
	return rows, nil
}

// DatasetFromRecords converts Arrow record batches into a partitioned
// dataset, one partition per batch. Batches must share a schema.
func DatasetFromRecords(recs []arrow.Record) (dataset.Dataset, error) {
	parts := make([][]dataset.Record, 0, len(recs))
	for _, rec := range recs {
		rows, err := RowsFromRecord(rec)
		if err != nil {
			return dataset.Dataset{}, err
		}
		parts = append(parts, rows)
	}
	return dataset.New(parts...), nil
}

// RecordFromRows renders row records into one Arrow record batch with the
// given schema. Nil fields become nulls. The caller owns the returned record
// and must Release it.
func RecordFromRows(pool memory.Allocator, schema *arrow.Schema, rows []dataset.Record) (arrow.Record, error) {
	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	for c, field := range schema.Fields() {
		fb := builder.Field(c)
		for _, row := range rows {
			if c >= len(row) {
				return nil, errors.NewInvalidInputError("RecordFromRows",
					fmt.Sprintf("row has %d fields, schema expects %d", len(row), len(schema.Fields())))
			}
			if err := appendValue(fb, field.Type, row[c]); err != nil {
				return nil, errors.NewInvalidInputError("RecordFromRows",
					fmt.Sprintf("field %q: %v", field.Name, err))
			}
		}
	}
	return builder.NewRecord(), nil
}

func fillColumn(rows []dataset.Record, c int, col arrow.Array) error {
	switch arr := col.(type) {
	case *array.String:
		for i := range rows {
			if arr.IsNull(i) {
				continue
			}
			rows[i][c] = arr.Value(i)
		}
	case *array.Int64:
		for i := range rows {
			if arr.IsNull(i) {
				continue
			}
			rows[i][c] = arr.Value(i)
		}
	case *array.Int32:
		for i := range rows {
			if arr.IsNull(i) {
				continue
			}
			rows[i][c] = arr.Value(i)
		}
	case *array.Float64:
		for i := range rows {
			if arr.IsNull(i) {
				continue
			}
			rows[i][c] = arr.Value(i)
		}
	case *array.Boolean:
		for i := range rows {
			if arr.IsNull(i) {
				continue
			}
			rows[i][c] = arr.Value(i)
		}
	default:
		return fmt.Errorf("unsupported Arrow type %s", col.DataType())
	}
	return nil
}

func appendValue(fb array.Builder, dt arrow.DataType, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}
	switch b := fb.(type) {
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		b.Append(s)
	case *array.Int64Builder:
		switch n := v.(type) {
		case int64:
			b.Append(n)
		case int:
			b.Append(int64(n))
		default:
			return fmt.Errorf("expected int64, got %T", v)
		}
	case *array.Int32Builder:
		n, ok := v.(int32)
		if !ok {
			return fmt.Errorf("expected int32, got %T", v)
		}
		b.Append(n)
	case *array.Float64Builder:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", v)
		}
		b.Append(f)
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		b.Append(bv)
	default:
		return fmt.Errorf("unsupported Arrow type %s", dt)
	}
	return nil
}
