package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// CalibrationKey is the score field dropped from the table.
const CalibrationKey = "user_calibrating"

// CellKind is the type of value held by a Cell.
type CellKind int

const (
	// CellMissing marks a key absent from this record's score, or a JSON null.
	CellMissing CellKind = iota
	// CellNumber holds a JSON number.
	CellNumber
	// CellString holds a JSON string, or the raw JSON of a nested object or array.
	CellString
	// CellBool holds a JSON boolean.
	CellBool
)

// Cell is one value of the table.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
	Bool bool
}

// Float returns the numeric value and whether the cell is a number.
func (c Cell) Float() (float64, bool) {
	if c.Kind != CellNumber {
		return 0, false
	}
	return c.Num, true
}

// String formats the cell for display. Missing cells are empty.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellString:
		return c.Str
	case CellBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// Table is the projected view of a set of recovery records. Rows are kept
// in record arrival order. A Table is not modified after it is returned.
type Table struct {
	index   []time.Time
	columns []string
	colPos  map[string]int
	rows    [][]Cell
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.index)
}

// Times returns a copy of the row index.
func (t *Table) Times() []time.Time {
	return append([]time.Time(nil), t.index...)
}

// Columns returns a copy of the column names in first-appearance order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Row returns a copy of row i, aligned with Columns.
func (t *Table) Row(i int) []Cell {
	return append([]Cell(nil), t.rows[i]...)
}

// Cell returns the value of column in row i. ok is false for an unknown column.
func (t *Table) Cell(i int, column string) (Cell, bool) {
	pos, ok := t.colPos[column]
	if !ok {
		return Cell{}, false
	}
	return t.rows[i][pos], true
}

// Values returns the column as floats, with NaN for cells that are not numbers.
// An unknown column yields all NaN.
func (t *Table) Values(column string) []float64 {
	out := make([]float64, len(t.rows))
	pos, ok := t.colPos[column]
	for i, row := range t.rows {
		out[i] = math.NaN()
		if !ok {
			continue
		}
		if v, isNum := row[pos].Float(); isNum {
			out[i] = v
		}
	}
	return out
}

// Equal reports whether both tables have the same index, columns and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.index) != len(o.index) || len(t.columns) != len(o.columns) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for i := range t.index {
		if !t.index[i].Equal(o.index[i]) {
			return false
		}
		for j := range t.rows[i] {
			if t.rows[i][j] != o.rows[i][j] {
				return false
			}
		}
	}
	return true
}

type rawRecord struct {
	CreatedAt *string         `json:"created_at"`
	Score     json.RawMessage `json:"score"`
}

type scoreField struct {
	key  string
	cell Cell
}

// parseCreatedAt parses a record timestamp. Timestamps without a zone are
// taken as UTC.
func parseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range zonelessLayouts {
		if zt, zerr := time.Parse(layout, s); zerr == nil {
			return zt, nil
		}
	}
	return time.Time{}, err
}

// Project builds a Table from raw recovery records. Each record must be an
// object with a parseable created_at and a score object.
func Project(records []json.RawMessage) (*Table, error) {
	t := &Table{
		index:  make([]time.Time, 0, len(records)),
		colPos: make(map[string]int),
	}
	scores := make([][]scoreField, 0, len(records))

	for i, raw := range records {
		var rec rawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &ProjectionError{Record: i, Reason: "record is not an object", Err: err}
		}

		if rec.CreatedAt == nil {
			return nil, &ProjectionError{Record: i, Reason: "missing created_at"}
		}
		created, err := parseCreatedAt(*rec.CreatedAt)
		if err != nil {
			return nil, &ProjectionError{Record: i, Reason: "unparseable created_at", Err: err}
		}

		if len(rec.Score) == 0 || bytes.Equal(bytes.TrimSpace(rec.Score), []byte("null")) {
			return nil, &ProjectionError{Record: i, Reason: "missing score"}
		}
		fields, err := decodeScore(rec.Score)
		if err != nil {
			return nil, &ProjectionError{Record: i, Reason: "malformed score", Err: err}
		}

		for _, f := range fields {
			if f.key == CalibrationKey {
				continue
			}
			if _, seen := t.colPos[f.key]; !seen {
				t.colPos[f.key] = len(t.columns)
				t.columns = append(t.columns, f.key)
			}
		}

		t.index = append(t.index, created.UTC())
		scores = append(scores, fields)
	}

	t.rows = make([][]Cell, len(scores))
	for i, fields := range scores {
		row := make([]Cell, len(t.columns))
		for _, f := range fields {
			if pos, ok := t.colPos[f.key]; ok {
				row[pos] = f.cell
			}
		}
		t.rows[i] = row
	}

	return t, nil
}

var errScoreNotObject = errors.New("score is not an object")

// decodeScore walks the score object token by token so keys keep their
// document order.
func decodeScore(data json.RawMessage) ([]scoreField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errScoreNotObject
	}

	var fields []scoreField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		cell, err := decodeCell(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}

		replaced := false
		for j := range fields {
			if fields[j].key == key {
				fields[j].cell = cell
				replaced = true
				break
			}
		}
		if !replaced {
			fields = append(fields, scoreField{key: key, cell: cell})
		}
	}

	return fields, nil
}

func decodeCell(value json.RawMessage) (Cell, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return Cell{}, nil
	}

	switch value[0] {
	case 'n':
		return Cell{Kind: CellMissing}, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return Cell{}, err
		}
		return Cell{Kind: CellBool, Bool: b}, nil
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return Cell{}, err
		}
		return Cell{Kind: CellString, Str: s}, nil
	case '{', '[':
		return Cell{Kind: CellString, Str: string(value)}, nil
	default:
		f, err := strconv.ParseFloat(string(value), 64)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Kind: CellNumber, Num: f}, nil
	}
}
