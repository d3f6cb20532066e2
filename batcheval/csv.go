package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// writeCSV persists the per-image verdicts for spreadsheet triage.
func writeCSV(path string, report *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"file", "accepted", "corners", "area_frac", "debug_image"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}
	for _, row := range report.Rows {
		rec := []string{
			row.File,
			strconv.FormatBool(row.Accepted),
			strconv.Itoa(row.Corners),
			strconv.FormatFloat(row.AreaFraction, 'f', 4, 64),
			row.DebugImage,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}
	w.Flush()
	return w.Error()
}
