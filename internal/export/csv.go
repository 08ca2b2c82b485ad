// Package export writes decoded captures to disk.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Column is one named series of a capture.
type Column struct {
	Name   string
	Values []float64
}

// WriteCSV writes a header "Time,<names...>" followed by one row per point.
// Every column must have as many values as times.
func WriteCSV(w io.Writer, times []float64, cols ...Column) error {
	for _, c := range cols {
		if len(c.Values) != len(times) {
			return fmt.Errorf("column %s has %d values, want %d", c.Name, len(c.Values), len(times))
		}
	}

	cw := csv.NewWriter(w)
	record := make([]string, 1+len(cols))
	record[0] = "Time"
	for i, c := range cols {
		record[i+1] = c.Name
	}
	if err := cw.Write(record); err != nil {
		return err
	}
	for k, t := range times {
		record[0] = formatFloat(t)
		for i, c := range cols {
			record[i+1] = formatFloat(c.Values[k])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
