package pipeline

import (
	"calibboard/internal"
	"calibboard/internal/util"
)

type foldedCell struct {
	label string
	value string
}

// Resolve returns the value of the first row cell whose label matches the
// first candidate that matches anything. Labels compare after accent, case and
// surrounding whitespace are folded away. No match yields "".
func Resolve(row internal.RawRow, candidates []string) string {
	return resolveFolded(foldRow(row), util.FoldAll(candidates))
}

func foldRow(row internal.RawRow) []foldedCell {
	out := make([]foldedCell, len(row))
	for i, c := range row {
		out[i] = foldedCell{label: util.FoldLabel(c.Label), value: c.Value}
	}
	return out
}

// resolveFolded expects both sides already folded.
func resolveFolded(cells []foldedCell, candidates []string) string {
	for _, candidate := range candidates {
		for _, c := range cells {
			if c.label == candidate {
				return c.value
			}
		}
	}
	return ""
}
