// Package dataset turns uploaded or stored tabular data into the two
// outcome samples of an A/B test.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gkobilansky/ab-sim/internal/stats"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

const (
	DefaultGroupColumn   = "group"
	DefaultOutcomeColumn = "converted"

	LabelA = "A"
	LabelB = "B"
)

// Columns names the label and outcome columns of a table.
type Columns struct {
	Group   string
	Outcome string
}

func (c Columns) withDefaults() Columns {
	if c.Group == "" {
		c.Group = DefaultGroupColumn
	}
	if c.Outcome == "" {
		c.Outcome = DefaultOutcomeColumn
	}
	return c
}

// Samples is the result of splitting a table by group label.
type Samples struct {
	A       stats.Sample
	B       stats.Sample
	Skipped int // rows whose label was neither A nor B
}

// Extract splits rows (header first) into the A and B samples. Rows with
// any other label are skipped; a row with a non-binary outcome fails the
// whole table.
func Extract(rows [][]string, cols Columns) (*Samples, error) {
	cols = cols.withDefaults()
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table is empty", stats.ErrInvalidInput)
	}

	groupIdx, outcomeIdx, err := columnIndexes(rows[0], cols)
	if err != nil {
		return nil, err
	}

	out := &Samples{}
	for i, row := range rows[1:] {
		line := i + 2
		label := cell(row, groupIdx)
		if label == "" && cell(row, outcomeIdx) == "" {
			continue // blank line
		}

		var target *stats.Sample
		switch label {
		case LabelA:
			target = &out.A
		case LabelB:
			target = &out.B
		default:
			out.Skipped++
			continue
		}

		v, err := ParseOutcome(cell(row, outcomeIdx))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		*target = append(*target, v)
	}

	if len(out.A) == 0 {
		return nil, fmt.Errorf("%w: no rows for group %s", stats.ErrInvalidInput, LabelA)
	}
	if len(out.B) == 0 {
		return nil, fmt.Errorf("%w: no rows for group %s", stats.ErrInvalidInput, LabelB)
	}
	return out, nil
}

func columnIndexes(header []string, cols Columns) (group, outcome int, err error) {
	group, outcome = -1, -1
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(name, cols.Group):
			group = i
		case strings.EqualFold(name, cols.Outcome):
			outcome = i
		}
	}
	if group < 0 {
		return 0, 0, fmt.Errorf("%w: missing required column %q", stats.ErrInvalidInput, cols.Group)
	}
	if outcome < 0 {
		return 0, 0, fmt.Errorf("%w: missing required column %q", stats.ErrInvalidInput, cols.Outcome)
	}
	return group, outcome, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseOutcome accepts 0/1, true/false and 0.0/1.0 spellings of a binary
// outcome.
func ParseOutcome(s string) (int, error) {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		switch f {
		case 0:
			return 0, nil
		case 1:
			return 1, nil
		}
	}
	return 0, fmt.Errorf("%w: outcome %q is not binary", stats.ErrInvalidInput, s)
}
