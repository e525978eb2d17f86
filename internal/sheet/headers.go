package sheet

import (
	"fmt"
	"strings"

	"partcat/internal/textnorm"
)

// Columns holds the 1-based positions of the three source columns.
type Columns struct {
	SKU         int
	Description int
	Reference   int
}

var (
	skuHeaders         = []string{"sku", "codigo", "cod", "codigo producto", "code"}
	descriptionHeaders = []string{"f_descripcion", "descripcion", "descripcion corta", "descripcion completa", "description", "nombre", "producto"}
	referenceHeaders   = []string{"f_referencia_suplidor", "referencia", "reference", "ref"}
)

// MissingColumnsError lists the logical columns that no header matched.
type MissingColumnsError struct {
	Missing []string
	Headers []string
}

func (e *MissingColumnsError) Error() string {
	quoted := make([]string, len(e.Headers))
	for i, h := range e.Headers {
		quoted[i] = fmt.Sprintf("%q", h)
	}
	return fmt.Sprintf("required columns not found: %s. Detected headers: [%s]",
		strings.Join(e.Missing, ", "), strings.Join(quoted, ", "))
}

// ResolveColumns matches headers against the known names for each source
// column. The leftmost matching header wins.
func ResolveColumns(headers []string) (Columns, error) {
	cols := Columns{
		SKU:         findAny(headers, skuHeaders),
		Description: findAny(headers, descriptionHeaders),
		Reference:   findAny(headers, referenceHeaders),
	}

	var missing []string
	if cols.SKU == 0 {
		missing = append(missing, "sku")
	}
	if cols.Description == 0 {
		missing = append(missing, "descripcion")
	}
	if cols.Reference == 0 {
		missing = append(missing, "referencia")
	}
	if len(missing) > 0 {
		return Columns{}, &MissingColumnsError{Missing: missing, Headers: headers}
	}
	return cols, nil
}

// FindColumn returns the 1-based position of the first header equal to
// name after normalization, or 0.
func FindColumn(headers []string, name string) int {
	return findAny(headers, []string{name})
}

func findAny(headers []string, candidates []string) int {
	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[textnorm.Normalize(c)] = true
	}
	for i, h := range headers {
		if set[textnorm.Normalize(h)] {
			return i + 1
		}
	}
	return 0
}
