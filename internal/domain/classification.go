package domain

import "time"

// Row is one spare-part line read from the sheet. Index is the 1-based
// sheet row; the header occupies row 1.
type Row struct {
	Index       int
	SKU         string
	Description string
	Reference   string
}

// IsBlank reports whether the row carries no identifying data at all.
func (r Row) IsBlank() bool {
	return r.SKU == "" && r.Description == "" && r.Reference == ""
}

type Mode string

const (
	ModeCategory Mode = "category"
	ModeBodywork Mode = "bodywork"
)

// ResultColumn is the header of the column the mode writes to.
func (m Mode) ResultColumn() string {
	if m == ModeBodywork {
		return "es_carroceria"
	}
	return "categoria"
}

// Source tells how a row's label was obtained.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

type ClassificationRecord struct {
	ID           int64
	RunID        string
	RowIndex     int
	SKU          string
	Label        string
	Source       Source
	ClassifiedAt time.Time
}

type RunRecord struct {
	ID         string
	InputPath  string
	OutputPath string
	Sheet      string
	Mode       Mode
	Provider   string
	Model      string
	StartedAt  time.Time
	FinishedAt time.Time
	Pending    int
	Fallbacks  int
}
