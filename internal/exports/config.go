// Package exports turns records into downloadable tabular files.
package exports

import (
	"fmt"
	"strings"
)

// Format is an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	defaultDir       = "./data/downloads"
	defaultWorkers   = 2
	defaultQueueSize = 64
)

// ParseFormat normalises value into a known format.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("exports: unsupported format %q", value)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Config controls where exports are written and how many run at once.
type Config struct {
	Dir       string
	Workers   int
	QueueSize int
	Formats   []Format
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Dir) == "" {
		c.Dir = defaultDir
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if len(c.Formats) == 0 {
		c.Formats = []Format{FormatCSV, FormatXLSX}
	}
	return c
}

// Supports reports whether format is enabled.
func (c Config) Supports(format Format) bool {
	for _, f := range c.Formats {
		if f == format {
			return true
		}
	}
	return false
}
