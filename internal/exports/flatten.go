package exports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// Table is a flattened set of records ready for row oriented output.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// Columns returns the header, narrowed to columns when given. Unknown columns are kept
// so user preferences still produce a stable layout.
func (t *Table) Columns(columns []string) []string {
	if len(columns) == 0 {
		return t.Header
	}
	return columns
}

// Flatten serialises each element of records to JSON and flattens nested objects
// into dotted column names. Arrays use their index as a path segment. The header
// lists every column in first seen order.
func Flatten(records any) (*Table, error) {
	table := &Table{}
	seen := make(map[string]struct{})

	value := reflect.ValueOf(records)
	for value.Kind() == reflect.Pointer && !value.IsNil() {
		value = value.Elem()
	}
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return nil, fmt.Errorf("exports: flatten expects a slice, got %T", records)
	}

	for i := 0; i < value.Len(); i++ {
		raw, err := json.Marshal(value.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("exports: encode record %d: %w", i, err)
		}

		row := make(map[string]string)
		var order []string
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := flattenValue(dec, "", row, &order); err != nil {
			return nil, fmt.Errorf("exports: flatten record %d: %w", i, err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, fmt.Errorf("exports: flatten record %d: trailing data", i)
		}

		for _, column := range order {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			table.Header = append(table.Header, column)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func flattenValue(dec *json.Decoder, prefix string, row map[string]string, order *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			empty := true
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return errors.New("object key is not a string")
				}
				empty = false
				if err := flattenValue(dec, join(prefix, key), row, order); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			if empty && prefix != "" {
				set(row, order, prefix, "")
			}
		case '[':
			index := 0
			for dec.More() {
				if err := flattenValue(dec, join(prefix, strconv.Itoa(index)), row, order); err != nil {
					return err
				}
				index++
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			if index == 0 && prefix != "" {
				set(row, order, prefix, "")
			}
		default:
			return fmt.Errorf("unexpected delimiter %q", v)
		}
	case nil:
		set(row, order, scalarKey(prefix), "")
	case bool:
		set(row, order, scalarKey(prefix), strconv.FormatBool(v))
	case json.Number:
		set(row, order, scalarKey(prefix), v.String())
	case string:
		set(row, order, scalarKey(prefix), v)
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func scalarKey(prefix string) string {
	if prefix == "" {
		return "value"
	}
	return prefix
}

func set(row map[string]string, order *[]string, key, value string) {
	if _, exists := row[key]; !exists {
		*order = append(*order, key)
	}
	row[key] = value
}
