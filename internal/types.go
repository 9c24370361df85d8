package internal

import "strings"

const (
	// AffirmativeToken prefixes a calibration-required value that mandates calibration.
	AffirmativeToken = "SIM"
	// CompletionToken marks a calibration status as performed.
	CompletionToken = "OK"
)

type Cell struct {
	Label string
	Value string
}

// RawRow is one decoded spreadsheet row in source column order. Labels are kept
// exactly as authored; no schema is assumed.
type RawRow []Cell

// RowOf builds a RawRow from alternating label/value pairs.
func RowOf(pairs ...string) RawRow {
	row := make(RawRow, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		row = append(row, Cell{Label: pairs[i], Value: pairs[i+1]})
	}
	return row
}

type SourceKind string

const (
	SourceXLSX SourceKind = "xlsx"
	SourceCSV  SourceKind = "csv"
	SourceHTML SourceKind = "html"
	SourceEML  SourceKind = "eml"
)

// Source is an uploaded file handed to the ingestion pipeline.
type Source struct {
	Name    string
	Content []byte
}

type CanonicalRecord struct {
	Subsystem           string `json:"subsystem"`
	Tag                 string `json:"tag"`
	Description         string `json:"description"`
	Location            string `json:"location"`
	CalibrationRequired string `json:"calibrationRequired"`
	CalibrationStatus   string `json:"calibrationStatus"`
	Origin              string `json:"origin"`
}

// RequiresCalibration reports whether the calibration-required text starts with
// the affirmative token.
func (r CanonicalRecord) RequiresCalibration() bool {
	return strings.HasPrefix(strings.ToUpper(r.CalibrationRequired), AffirmativeToken)
}

// CalibrationDone reports whether the status text carries the completion token.
func (r CanonicalRecord) CalibrationDone() bool {
	return strings.Contains(strings.ToUpper(r.CalibrationStatus), CompletionToken)
}

// MissingTag reports a record still waiting for an equipment identifier.
func (r CanonicalRecord) MissingTag() bool {
	return r.Tag == ""
}

type Disposition string

const (
	DispositionAny         Disposition = "ANY"
	DispositionRequired    Disposition = "REQUIRED"
	DispositionNotRequired Disposition = "NOT_REQUIRED"
	DispositionCompleted   Disposition = "COMPLETED"
	DispositionPending     Disposition = "PENDING"
)

// ShowAll is the subsystem/location value that disables the clause.
const ShowAll = ""

type FilterCriteria struct {
	Subsystem   string      `json:"subsystem"`
	Search      string      `json:"search"`
	Location    string      `json:"location"`
	Calibration Disposition `json:"calibration"`
}

type KPISummary struct {
	Total             int `json:"total"`
	MissingTag        int `json:"missingTag"`
	Required          int `json:"required"`
	Completed         int `json:"completed"`
	Outstanding       int `json:"outstanding"`
	CompletionPercent int `json:"completionPercent"`
}

type SubsystemCount struct {
	Subsystem string `json:"subsystem"`
	Count     int    `json:"count"`
	Required  int    `json:"required"`
	Completed int    `json:"completed"`
}

type SourceReport struct {
	Name     string `json:"name"`
	Decoder  string `json:"decoder,omitempty"`
	Rows     int    `json:"rows"`
	Accepted int    `json:"accepted"`
	Dropped  int    `json:"dropped"`
	Error    string `json:"error,omitempty"`
}

func (r SourceReport) Failed() bool {
	return r.Error != ""
}

type RunRow struct {
	ID        int                `json:"id"`
	TraceID   string             `json:"traceId"`
	Status    string             `json:"status"`
	Sources   []SourceReport     `json:"sources"`
	Counts    map[string]int     `json:"counts"`
	Timings   map[string]float64 `json:"timings"`
	Error     string             `json:"error,omitempty"`
	CreatedAt string             `json:"createdAt"`
}
