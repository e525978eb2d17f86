// Package taxonomy holds the fixed spare-part category list and resolves
// free-text labels returned by the model into it.
package taxonomy

import "partcat/internal/textnorm"

const (
	Filtros       = "Filtros"
	Frenos        = "Frenos"
	Luces         = "Luces"
	Motor         = "Motor"
	Refrigeracion = "Refrigeración"
	Rodamientos   = "Rodamientos"
	Electrico     = "Sistema eléctrico"
	Suspension    = "Suspension y direccion"
	Transmision   = "Transmisión"

	// Carroceria is only used by the bodywork keyword lexicon.
	Carroceria = "Carroceria"

	// DefaultCategory is assigned when no keyword rule matches.
	DefaultCategory = Motor
)

var categories = []string{
	Filtros,
	Frenos,
	Luces,
	Motor,
	Refrigeracion,
	Rodamientos,
	Electrico,
	Suspension,
	Transmision,
}

// Keys are already normalized.
var aliases = map[string]string{
	"refrigeracion":          Refrigeracion,
	"sistema electrico":      Electrico,
	"suspension y direccion": Suspension,
	"suspension/direccion":   Suspension,
	"transmision":            Transmision,
}

var (
	affirmative = map[string]bool{
		"si": true, "yes": true, "true": true, "1": true,
		"carroceria": true, "carroceria si": true,
	}
	negative = map[string]bool{
		"no": true, "false": true, "0": true, "no carroceria": true,
	}
)

// Categories returns the canonical categories in their fixed order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsCategory reports whether s is exactly one of the canonical categories.
func IsCategory(s string) bool {
	for _, c := range categories {
		if c == s {
			return true
		}
	}
	return false
}

// Canonicalize maps raw onto a canonical category. The second result is
// false when raw matches neither a category nor a known alias.
func Canonicalize(raw string) (string, bool) {
	norm := textnorm.Normalize(raw)
	if norm == "" {
		return "", false
	}
	for _, c := range categories {
		if textnorm.Normalize(c) == norm {
			return c, true
		}
	}
	if c, ok := aliases[norm]; ok {
		return c, true
	}
	return "", false
}

// ParseYesNo interprets a SI/NO style flag. ok is false for anything that
// is not a recognized affirmative or negative token.
func ParseYesNo(raw string) (value bool, ok bool) {
	norm := textnorm.Normalize(raw)
	switch {
	case affirmative[norm]:
		return true, true
	case negative[norm]:
		return false, true
	}
	return false, false
}

// FormatYesNo renders a bodywork flag the way it is stored in the sheet.
func FormatYesNo(v bool) string {
	if v {
		return "SI"
	}
	return "NO"
}
