// Package fallback is the offline keyword classifier used for rows the
// model could not resolve.
package fallback

import (
	"strings"

	"partcat/internal/domain"
	"partcat/internal/taxonomy"
	"partcat/internal/textnorm"
)

// Rule maps a category to the keywords that select it. Keywords are
// matched as substrings of the normalized row text.
type Rule struct {
	Category string
	Keywords []string
}

// Rules are evaluated in order; the first hit wins.
var defaultRules = []Rule{
	{Category: taxonomy.Filtros, Keywords: []string{"filtro", "air filter", "oil filter", "fuel filter", "cabina"}},
	{Category: taxonomy.Frenos, Keywords: []string{"freno", "pastilla", "disco", "balata", "caliper", "tambor"}},
	{Category: taxonomy.Luces, Keywords: []string{"luz", "faro", "bombillo", "led", "halogena", "stop", "intermitente"}},
	{Category: taxonomy.Refrigeracion, Keywords: []string{"radiador", "coolant", "termostato", "ventilador", "anticongelante", "bomba de agua"}},
	{Category: taxonomy.Rodamientos, Keywords: []string{"rodamiento", "bearing", "balinera", "cubo"}},
	{Category: taxonomy.Electrico, Keywords: []string{"alternador", "arranque", "bateria", "sensor", "rele", "fusible", "bobina"}},
	{Category: taxonomy.Suspension, Keywords: []string{"amortiguador", "suspension", "direccion", "terminal", "cremallera", "buje", "rotula"}},
	{Category: taxonomy.Transmision, Keywords: []string{"clutch", "embrague", "transmision", "caja", "diferencial", "homocinetica"}},
}

var defaultBodyworkKeywords = []string{
	"carroceria",
	"parachoque",
	"bumper",
	"guardalodo",
	"salpicadera",
	"capot",
	"bonete",
	"puerta",
	"compuerta",
	"tapa baul",
	"baul",
	"fender",
	"parrilla",
	"rejilla",
	"espejo",
	"retrovisor",
	"manija exterior",
	"bisagra puerta",
	"spoiler",
	"moldura",
}

// Classifier is a deterministic keyword matcher. The zero value is not
// usable; use New or Default.
type Classifier struct {
	rules    []Rule
	bodywork []string
}

var std = New(nil)

// Default returns the classifier with only the built-in lexicon.
func Default() *Classifier {
	return std
}

// New builds a classifier from the built-in lexicon extended by g. Glossary
// rules are appended after the built-in ones so they never outrank them.
func New(g *Glossary) *Classifier {
	c := &Classifier{}
	for _, r := range defaultRules {
		c.rules = append(c.rules, normalizeRule(r))
	}
	for _, w := range defaultBodyworkKeywords {
		c.bodywork = append(c.bodywork, textnorm.Normalize(w))
	}
	if g == nil {
		return c
	}
	c.rules = append(c.rules, g.rules()...)
	for _, w := range g.Bodywork {
		if w = textnorm.Normalize(w); w != "" {
			c.bodywork = append(c.bodywork, w)
		}
	}
	return c
}

func normalizeRule(r Rule) Rule {
	out := Rule{Category: r.Category}
	for _, k := range r.Keywords {
		if k = textnorm.Normalize(k); k != "" {
			out.Keywords = append(out.Keywords, k)
		}
	}
	return out
}

// Category returns the first category whose keywords occur in the row text,
// or taxonomy.DefaultCategory.
func (c *Classifier) Category(sku, description, reference string) string {
	text := rowText(sku, description, reference)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Category
			}
		}
	}
	return taxonomy.DefaultCategory
}

// Bodywork reports whether any bodywork keyword occurs in the row text.
func (c *Classifier) Bodywork(sku, description, reference string) bool {
	text := rowText(sku, description, reference)
	for _, k := range c.bodywork {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// CategoryFor is Category applied to a row.
func (c *Classifier) CategoryFor(r domain.Row) string {
	return c.Category(r.SKU, r.Description, r.Reference)
}

// BodyworkFor is Bodywork applied to a row.
func (c *Classifier) BodyworkFor(r domain.Row) bool {
	return c.Bodywork(r.SKU, r.Description, r.Reference)
}

// Category classifies with the built-in lexicon.
func Category(sku, description, reference string) string {
	return std.Category(sku, description, reference)
}

// Bodywork flags with the built-in lexicon.
func Bodywork(sku, description, reference string) bool {
	return std.Bodywork(sku, description, reference)
}

func rowText(sku, description, reference string) string {
	return textnorm.Normalize(sku + " " + description + " " + reference)
}
