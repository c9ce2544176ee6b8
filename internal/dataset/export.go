package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/gkobilansky/ab-sim/internal/stats"
)

const exportSheet = "Sheet1"

// Row is one exported observation.
type Row struct {
	Group     string `json:"group"`
	Converted int    `json:"converted"`
}

// Rows flattens both samples into A rows followed by B rows.
func (s *Samples) Rows() []Row {
	rows := make([]Row, 0, len(s.A)+len(s.B))
	for _, v := range s.A {
		rows = append(rows, Row{Group: LabelA, Converted: v})
	}
	for _, v := range s.B {
		rows = append(rows, Row{Group: LabelB, Converted: v})
	}
	return rows
}

// FromSamples wraps two samples for export.
func FromSamples(a, b stats.Sample) *Samples {
	return &Samples{A: a, B: b}
}

// Write exports s to w in the given format.
func Write(w io.Writer, s *Samples, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, s)
	case FormatJSON:
		return writeJSON(w, s)
	case FormatXLSX:
		return writeXLSX(w, s)
	default:
		return fmt.Errorf("%w: %q (want csv, json or xlsx)", ErrUnsupportedFormat, format)
	}
}

func writeCSV(w io.Writer, s *Samples) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{DefaultGroupColumn, DefaultOutcomeColumn}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range s.Rows() {
		if err := cw.Write([]string{r.Group, strconv.Itoa(r.Converted)}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

type jsonExport struct {
	Rows []Row `json:"rows"`
}

func writeJSON(w io.Writer, s *Samples) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonExport{Rows: s.Rows()})
}

func writeXLSX(w io.Writer, s *Samples) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(exportSheet, "A1", &[]interface{}{DefaultGroupColumn, DefaultOutcomeColumn}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range s.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &[]interface{}{r.Group, r.Converted}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
