package pipeline

import (
	"fmt"
	"strings"

	"partcat/internal/domain"
)

// Summary describes the outcome of one Run.
type Summary struct {
	Mode        domain.Mode
	OutputPath  string
	Sheet       string
	Resumed     bool
	AlreadyDone int
	Blank       int
	Pending     int
	Processed   int
	FromModel   int
	Fallbacks   int
	Batches     int
	Checkpoints int
	// BodyworkYes counts SI cells in the whole sheet (bodywork mode only).
	BodyworkYes int
}

// StatusLine is the one-line report printed when a run completes.
func (s Summary) StatusLine() string {
	if s.Pending == 0 {
		if s.Mode == domain.ModeBodywork {
			return fmt.Sprintf("No rows pending bodywork identification. File: %s", s.OutputPath)
		}
		return fmt.Sprintf("No rows pending classification. File: %s", s.OutputPath)
	}

	parts := []string{fmt.Sprintf("Completed. File: %s", s.OutputPath)}
	if s.Fallbacks > 0 {
		parts = append(parts, fmt.Sprintf("%d rows used keyword fallback", s.Fallbacks))
	}
	if s.Mode == domain.ModeBodywork {
		parts = append(parts, fmt.Sprintf("bodywork matches: %d", s.BodyworkYes))
	}
	return strings.Join(parts, ". ") + "."
}
