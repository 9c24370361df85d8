package view

import (
	"math"
	"sort"

	"calibboard/internal"
)

// Summarize recomputes the KPI block for records. CompletionPercent rounds half
// up and is 0 when nothing requires calibration.
func Summarize(records []internal.CanonicalRecord) internal.KPISummary {
	var s internal.KPISummary
	s.Total = len(records)
	for _, r := range records {
		if r.MissingTag() {
			s.MissingTag++
		}
		if !r.RequiresCalibration() {
			continue
		}
		s.Required++
		if r.CalibrationDone() {
			s.Completed++
		}
	}
	s.Outstanding = s.Required - s.Completed
	if s.Required > 0 {
		s.CompletionPercent = int(math.Floor(float64(s.Completed)*100/float64(s.Required) + 0.5))
	}
	return s
}

// Breakdown counts records per subsystem, largest first, ties by name.
func Breakdown(records []internal.CanonicalRecord) []internal.SubsystemCount {
	idx := map[string]int{}
	var out []internal.SubsystemCount
	for _, r := range records {
		i, ok := idx[r.Subsystem]
		if !ok {
			i = len(out)
			idx[r.Subsystem] = i
			out = append(out, internal.SubsystemCount{Subsystem: r.Subsystem})
		}
		out[i].Count++
		if r.RequiresCalibration() {
			out[i].Required++
			if r.CalibrationDone() {
				out[i].Completed++
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Subsystem < out[b].Subsystem
	})
	return out
}
