package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"partcat/internal/domain"
	"partcat/internal/taxonomy"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name        string
		sku         string
		description string
		reference   string
		want        string
	}{
		{name: "oil filter", sku: "F-100", description: "filtro de aceite", want: taxonomy.Filtros},
		{name: "brake pad", description: "pastilla de freno delantera", want: taxonomy.Frenos},
		{name: "no keyword", description: "pieza generica xyz", want: taxonomy.Motor},
		{name: "accented keyword", description: "Batería 12V", want: taxonomy.Electrico},
		{name: "reference only", reference: "RADIADOR-22", want: taxonomy.Refrigeracion},
		{name: "sku only", sku: "BEARING 6203", want: taxonomy.Rodamientos},
		{name: "suspension", description: "Rótula inferior", want: taxonomy.Suspension},
		{name: "transmission", description: "kit de embrague", want: taxonomy.Transmision},
		{name: "lights", description: "faro delantero izq", want: taxonomy.Luces},
		{name: "empty", want: taxonomy.Motor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Category(tt.sku, tt.description, tt.reference); got != tt.want {
				t.Fatalf("Category(%q, %q, %q) = %q, want %q", tt.sku, tt.description, tt.reference, got, tt.want)
			}
		})
	}
}

func TestCategoryFirstRuleWins(t *testing.T) {
	// "disco" (Frenos) and "sensor" (Sistema eléctrico) both match.
	if got := Category("", "disco de freno con sensor", ""); got != taxonomy.Frenos {
		t.Fatalf("expected earlier rule to win, got %q", got)
	}
	// "filtro" outranks "caja".
	if got := Category("", "filtro de caja automatica", ""); got != taxonomy.Filtros {
		t.Fatalf("expected Filtros to win over Transmisión, got %q", got)
	}
}

func TestBodywork(t *testing.T) {
	tests := []struct {
		description string
		want        bool
	}{
		{description: "parachoques delantero", want: true},
		{description: "filtro de aire", want: false},
		{description: "Espejo retrovisor derecho", want: true},
		{description: "Tapa Baúl", want: true},
		{description: "bujia", want: false},
	}
	for _, tt := range tests {
		if got := Bodywork("", tt.description, ""); got != tt.want {
			t.Fatalf("Bodywork(%q) = %v, want %v", tt.description, got, tt.want)
		}
	}
}

func TestDeterministic(t *testing.T) {
	row := domain.Row{Index: 2, SKU: "X", Description: "amortiguador trasero", Reference: "R1"}
	c := Default()
	first := c.CategoryFor(row)
	for i := 0; i < 10; i++ {
		if got := c.CategoryFor(row); got != first {
			t.Fatalf("CategoryFor changed between calls: %q then %q", first, got)
		}
	}
	if c.BodyworkFor(row) {
		t.Fatal("amortiguador must not be bodywork")
	}
}

func TestGlossaryExtendsLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	content := `
terms:
  - phrase: "mofle"
    category: "motor"
  - phrase: "Catalizador"
    category: "Motor"
  - phrase: "pastilla"
    category: "Luces"
bodywork:
  - "Cocuyo"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write glossary: %v", err)
	}
	g, err := LoadGlossary(path)
	if err != nil {
		t.Fatalf("LoadGlossary: %v", err)
	}
	if g.Terms[0].Category != taxonomy.Motor {
		t.Fatalf("expected category to be canonicalized, got %q", g.Terms[0].Category)
	}

	c := New(g)
	if got := c.Category("", "cocuyo lateral", ""); got != taxonomy.Motor {
		t.Fatalf("unexpected category for unmatched text: %q", got)
	}
	if got := c.Category("", "pastilla de freno", ""); got != taxonomy.Frenos {
		t.Fatalf("glossary rule must not outrank built-in rules, got %q", got)
	}
	if !c.Bodywork("", "Cocuyo trasero", "") {
		t.Fatal("expected glossary bodywork phrase to match")
	}
	if Bodywork("", "Cocuyo trasero", "") {
		t.Fatal("default classifier must not see glossary phrases")
	}
}

func TestLoadGlossaryRejectsUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	content := "terms:\n  - phrase: \"mofle\"\n    category: \"Escape\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write glossary: %v", err)
	}
	if _, err := LoadGlossary(path); err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
}

func TestAppendGlossaryTerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")

	if err := AppendGlossaryTerm(path, "Mofle", "motor"); err != nil {
		t.Fatalf("AppendGlossaryTerm: %v", err)
	}
	if err := AppendGlossaryTerm(path, " mofle ", "Motor"); err != nil {
		t.Fatalf("AppendGlossaryTerm duplicate: %v", err)
	}
	if err := AppendGlossaryTerm(path, "foo", "Escape"); err == nil {
		t.Fatal("expected unknown category to fail")
	}

	g, err := LoadGlossary(path)
	if err != nil {
		t.Fatalf("LoadGlossary: %v", err)
	}
	if len(g.Terms) != 1 {
		t.Fatalf("expected 1 term after duplicate append, got %d", len(g.Terms))
	}
	if g.Terms[0].Phrase != "Mofle" || g.Terms[0].Category != taxonomy.Motor {
		t.Fatalf("unexpected term: %+v", g.Terms[0])
	}
}

func TestAppendGlossaryTermMatchesNormalizedRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")

	if err := AppendGlossaryTerm(path, "Tubo  de Escape", "motor"); err != nil {
		t.Fatalf("AppendGlossaryTerm: %v", err)
	}
	for _, variant := range []string{"tubo de escápe", "TUBO DE ESCAPE", "\ttubo de  escape "} {
		if err := AppendGlossaryTerm(path, variant, "Luces"); err != nil {
			t.Fatalf("AppendGlossaryTerm(%q): %v", variant, err)
		}
	}

	g, err := LoadGlossary(path)
	if err != nil {
		t.Fatalf("LoadGlossary: %v", err)
	}
	if len(g.Terms) != 1 {
		t.Fatalf("expected variants to be deduplicated, got %+v", g.Terms)
	}
	rules := g.rules()
	if len(rules) != 1 || len(rules[0].Keywords) != 1 || rules[0].Keywords[0] != "tubo de escape" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if !g.hasPhrase("Tubo de escápe") {
		t.Fatal("expected hasPhrase to match the normalized keyword")
	}
}
