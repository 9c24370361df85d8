// Package view derives filtered record lists, KPI summaries and filter options
// from a working set snapshot. Nothing here mutates its input.
package view

import (
	"fmt"
	"strings"

	"calibboard/internal"
	"calibboard/internal/util"
)

// Filter returns the records matching every clause of c, in input order.
func Filter(records []internal.CanonicalRecord, c internal.FilterCriteria) []internal.CanonicalRecord {
	search := strings.ToLower(c.Search)
	out := make([]internal.CanonicalRecord, 0, len(records))
	for _, r := range records {
		if matches(r, c, search) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record passes c.
func Matches(r internal.CanonicalRecord, c internal.FilterCriteria) bool {
	return matches(r, c, strings.ToLower(c.Search))
}

func matches(r internal.CanonicalRecord, c internal.FilterCriteria, search string) bool {
	if c.Subsystem != internal.ShowAll && c.Subsystem != r.Subsystem {
		return false
	}
	if search != "" &&
		!strings.Contains(strings.ToLower(r.Tag), search) &&
		!strings.Contains(strings.ToLower(r.Description), search) {
		return false
	}
	if c.Location != internal.ShowAll && c.Location != strings.TrimSpace(r.Location) {
		return false
	}
	return matchesDisposition(r, c.Calibration)
}

func matchesDisposition(r internal.CanonicalRecord, d internal.Disposition) bool {
	switch d {
	case internal.DispositionRequired:
		return r.RequiresCalibration()
	case internal.DispositionNotRequired:
		return !r.RequiresCalibration()
	case internal.DispositionCompleted:
		return r.RequiresCalibration() && r.CalibrationDone()
	case internal.DispositionPending:
		return r.RequiresCalibration() && !r.CalibrationDone()
	default:
		return true
	}
}

// ParseDisposition accepts the canonical names in any case, plus the labels of
// the legacy dashboard (SIM, NAO, REALIZADO, PENDENTE). Empty means ANY.
func ParseDisposition(s string) (internal.Disposition, error) {
	folded := strings.ReplaceAll(util.FoldLabel(s), "-", "_")
	switch folded {
	case "", "ANY", "ALL", "TODOS":
		return internal.DispositionAny, nil
	case "REQUIRED", "SIM":
		return internal.DispositionRequired, nil
	case "NOT_REQUIRED", "NAO":
		return internal.DispositionNotRequired, nil
	case "COMPLETED", "REALIZADO", "OK":
		return internal.DispositionCompleted, nil
	case "PENDING", "PENDENTE":
		return internal.DispositionPending, nil
	default:
		return "", fmt.Errorf("unknown calibration disposition %q", s)
	}
}
