package repository

import (
	"fmt"
	"math"

	"github.com/jengzang/rond-timeline/internal/database"
)

// Column readers for driver rows. A NULL in a required column is a schema
// contract violation and is reported as an error, never skipped.

func requiredInt64(row database.Row, col string) (int64, error) {
	v, err := optionalInt64(row, col)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("column %s: unexpected NULL", col)
	}
	return *v, nil
}

func optionalInt64(row database.Row, col string) (*int64, error) {
	raw, ok := row[col]
	if !ok {
		return nil, fmt.Errorf("column %s: missing from result", col)
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int64:
		return &v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("column %s: non-integral value %v", col, v)
		}
		i := int64(v)
		return &i, nil
	case bool:
		var i int64
		if v {
			i = 1
		}
		return &i, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", col, raw)
	}
}

func requiredFloat(row database.Row, col string) (float64, error) {
	v, err := optionalFloat(row, col)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("column %s: unexpected NULL", col)
	}
	return *v, nil
}

func optionalFloat(row database.Row, col string) (*float64, error) {
	raw, ok := row[col]
	if !ok {
		return nil, fmt.Errorf("column %s: missing from result", col)
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case int64:
		f := float64(v)
		return &f, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", col, raw)
	}
}

func requiredString(row database.Row, col string) (string, error) {
	v, err := optionalString(row, col)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("column %s: unexpected NULL", col)
	}
	return *v, nil
}

func optionalString(row database.Row, col string) (*string, error) {
	raw, ok := row[col]
	if !ok {
		return nil, fmt.Errorf("column %s: missing from result", col)
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case []byte:
		s := string(v)
		return &s, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", col, raw)
	}
}

// rowReader accumulates the first column error so row decoding reads as a
// flat list of assignments.
type rowReader struct {
	row database.Row
	err error
}

func (r *rowReader) int64(col string) int64 {
	if r.err != nil {
		return 0
	}
	v, err := requiredInt64(r.row, col)
	r.err = err
	return v
}

func (r *rowReader) optInt64(col string) *int64 {
	if r.err != nil {
		return nil
	}
	v, err := optionalInt64(r.row, col)
	r.err = err
	return v
}

func (r *rowReader) float(col string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := requiredFloat(r.row, col)
	r.err = err
	return v
}

func (r *rowReader) optFloat(col string) *float64 {
	if r.err != nil {
		return nil
	}
	v, err := optionalFloat(r.row, col)
	r.err = err
	return v
}

func (r *rowReader) string(col string) string {
	if r.err != nil {
		return ""
	}
	v, err := requiredString(r.row, col)
	r.err = err
	return v
}

func (r *rowReader) optString(col string) *string {
	if r.err != nil {
		return nil
	}
	v, err := optionalString(r.row, col)
	r.err = err
	return v
}
