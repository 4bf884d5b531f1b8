package exports

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// Write renders table as format using columns as the header.
func Write(w io.Writer, format Format, table *Table, columns []string) error {
	if table == nil {
		table = &Table{}
	}
	columns = table.Columns(columns)

	switch format {
	case FormatCSV:
		return writeCSV(w, table, columns)
	case FormatXLSX:
		return writeXLSX(w, table, columns)
	default:
		return fmt.Errorf("exports: unsupported format %q", format)
	}
}

func writeCSV(w io.Writer, table *Table, columns []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("exports: write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range table.Rows {
		for i, column := range columns {
			record[i] = row[column]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("exports: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, table *Table, columns []string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]interface{}, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("exports: write xlsx header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil && len(columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	for i, row := range table.Rows {
		values := make([]interface{}, len(columns))
		for j, column := range columns {
			values[j] = row[column]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("exports: xlsx cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("exports: write xlsx row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("exports: write xlsx: %w", err)
	}
	return nil
}
