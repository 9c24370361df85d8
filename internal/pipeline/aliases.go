package pipeline

import (
	"calibboard/internal/config"
	"calibboard/internal/util"
)

// Aliases lists, per canonical field, the accepted source column labels in
// priority order. Source spreadsheets are authored in Portuguese; the English
// labels follow their Portuguese counterparts so that priority is preserved.
type Aliases struct {
	Subsystem           []string
	Tag                 []string
	Description         []string
	Location            []string
	CalibrationRequired []string
	CalibrationStatus   []string
	Origin              []string
}

func DefaultAliases() Aliases {
	return Aliases{
		Subsystem:           []string{"Sala/Sistema", "Room/System", "Sistema", "System", "Area", "Grupos de Instrumentos", "Instrument Groups"},
		Tag:                 []string{"TAG Hemobrás", "Equipment TAG", "TAG", "Instrumento", "Instrument", "Codigo", "Code"},
		Description:         []string{"Descrição dos Equipamentos", "Equipment Description", "Descrição", "Description", "Nome", "Name"},
		Location:            []string{"Local", "Location", "Area"},
		CalibrationRequired: []string{"Calibração (SIM ou NÃO)", "Calibration (YES/NO)", "Calibracao", "Calibration", "Criticidade", "Criticality"},
		CalibrationStatus:   []string{"Status de qualificação", "Qualification Status", "Status", "Situação", "Situation"},
		Origin:              []string{"ORIGEM", "ORIGIN"},
	}
}

// WithOverrides replaces every list the mapping file sets and keeps the rest.
func (a Aliases) WithOverrides(o config.AliasOverrides) Aliases {
	return Aliases{
		Subsystem:           pickStrings(o.Subsystem, a.Subsystem),
		Tag:                 pickStrings(o.Tag, a.Tag),
		Description:         pickStrings(o.Description, a.Description),
		Location:            pickStrings(o.Location, a.Location),
		CalibrationRequired: pickStrings(o.CalibrationRequired, a.CalibrationRequired),
		CalibrationStatus:   pickStrings(o.CalibrationStatus, a.CalibrationStatus),
		Origin:              pickStrings(o.Origin, a.Origin),
	}
}

func (a Aliases) fold() Aliases {
	return Aliases{
		Subsystem:           util.FoldAll(a.Subsystem),
		Tag:                 util.FoldAll(a.Tag),
		Description:         util.FoldAll(a.Description),
		Location:            util.FoldAll(a.Location),
		CalibrationRequired: util.FoldAll(a.CalibrationRequired),
		CalibrationStatus:   util.FoldAll(a.CalibrationStatus),
		Origin:              util.FoldAll(a.Origin),
	}
}

func pickStrings(custom, fallback []string) []string {
	src := fallback
	if custom != nil {
		src = custom
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
