package pipeline

import (
	"calibboard/internal"
)

type Normalizer struct {
	aliases    Aliases
	classifier *Classifier
}

// NewNormalizer folds the alias lists once; a nil classifier gets the defaults.
func NewNormalizer(aliases Aliases, classifier *Classifier) *Normalizer {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Normalizer{aliases: aliases.fold(), classifier: classifier}
}

// Normalize maps one raw row to a canonical record. The second result is false
// when the row has neither tag nor description; such rows are dropped for good.
func (n *Normalizer) Normalize(row internal.RawRow) (internal.CanonicalRecord, bool) {
	cells := foldRow(row)
	a := n.aliases

	record := internal.CanonicalRecord{
		Subsystem:           n.classifier.Classify(resolveFolded(cells, a.Subsystem)),
		Tag:                 resolveFolded(cells, a.Tag),
		Description:         resolveFolded(cells, a.Description),
		Location:            resolveFolded(cells, a.Location),
		CalibrationRequired: resolveFolded(cells, a.CalibrationRequired),
		CalibrationStatus:   resolveFolded(cells, a.CalibrationStatus),
		Origin:              resolveFolded(cells, a.Origin),
	}

	if record.Tag == "" && record.Description == "" {
		return internal.CanonicalRecord{}, false
	}
	return record, true
}

// NormalizeRows keeps row order and reports how many rows were dropped.
func (n *Normalizer) NormalizeRows(rows []internal.RawRow) ([]internal.CanonicalRecord, int) {
	out := make([]internal.CanonicalRecord, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		record, ok := n.Normalize(row)
		if !ok {
			dropped++
			continue
		}
		out = append(out, record)
	}
	return out, dropped
}
