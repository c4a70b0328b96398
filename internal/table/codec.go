package table

import (
	"encoding/json"
	"fmt"

	"github.com/tuannm99/graphdb/internal/value"
)

// wireValue is a JSON-marshalable mirror of value.Value, which keeps
// its fields unexported so columns can't be mutated except through
// Push.
type wireValue struct {
	Kind value.Kind `json:"k"`
	I    int64      `json:"i,omitempty"`
	S    string     `json:"s,omitempty"`
	B    bool       `json:"b,omitempty"`
}

func encodeValue(v value.Value) wireValue {
	switch v.Kind() {
	case value.KindInt64:
		return wireValue{Kind: value.KindInt64, I: v.AsInt64()}
	case value.KindString:
		return wireValue{Kind: value.KindString, S: v.AsString()}
	case value.KindBool:
		return wireValue{Kind: value.KindBool, B: v.AsBool()}
	default:
		return wireValue{Kind: value.KindNull}
	}
}

func decodeValue(w wireValue) value.Value {
	switch w.Kind {
	case value.KindInt64:
		return value.Int64(w.I)
	case value.KindString:
		return value.String(w.S)
	case value.KindBool:
		return value.Bool(w.B)
	default:
		return value.Null()
	}
}

type wireNodeRow struct {
	Values []wireValue `json:"v"`
}

// EncodeRows serializes every row of t, in insertion order, to a
// self-contained JSON payload suitable for writing to a page chain.
func (t *NodeTable) EncodeRows() ([]byte, error) {
	rows := make([]wireNodeRow, t.NumRows())
	for i := range rows {
		vals := make([]wireValue, len(t.columns))
		for c, col := range t.columns {
			vals[c] = encodeValue(col.Get(i))
		}
		rows[i] = wireNodeRow{Values: vals}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("table: encode rows: %w", err)
	}
	return payload, nil
}

// DecodeRowsInto re-inserts rows previously produced by EncodeRows
// into t, which must be empty: the table's primary-key index and
// column lengths are rebuilt through the normal Insert path, so row
// ids come out identical to the table's state before it was encoded.
func (t *NodeTable) DecodeRowsInto(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var rows []wireNodeRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("table: decode rows: %w", err)
	}
	for _, r := range rows {
		row := make(map[string]value.Value, len(t.Schema.Columns))
		for i, c := range t.Schema.Columns {
			row[c.Name] = decodeValue(r.Values[i])
		}
		if _, err := t.Insert(row); err != nil {
			return err
		}
	}
	return nil
}

type wireRelRow struct {
	Src    RowId       `json:"src"`
	Dst    RowId       `json:"dst"`
	Values []wireValue `json:"v"`
}

// EncodeRows serializes every row of t, in insertion order.
func (t *RelTable) EncodeRows() ([]byte, error) {
	rows := make([]wireRelRow, t.NumRows())
	for i := range rows {
		vals := make([]wireValue, len(t.columns))
		for c, col := range t.columns {
			vals[c] = encodeValue(col.Get(i))
		}
		rows[i] = wireRelRow{Src: t.srcRowID[i], Dst: t.dstRowID[i], Values: vals}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("table: encode rel rows: %w", err)
	}
	return payload, nil
}

// DecodeRowsInto re-inserts rows previously produced by EncodeRows
// into t, which must be empty. src and dst must already hold the same
// rows (in the same order) they held when t was encoded, so the
// recorded src/dst row ids still resolve to the correct endpoints.
func (t *RelTable) DecodeRowsInto(data []byte, src, dst *NodeTable) error {
	if len(data) == 0 {
		return nil
	}
	var rows []wireRelRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("table: decode rel rows: %w", err)
	}
	for _, r := range rows {
		props := make(map[string]value.Value, len(t.Schema.Columns))
		for i, c := range t.Schema.Columns {
			props[c.Name] = decodeValue(r.Values[i])
		}
		if _, err := t.Insert(src, dst, r.Src, r.Dst, props); err != nil {
			return err
		}
	}
	return nil
}
