package fallback

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"partcat/internal/taxonomy"
	"partcat/internal/textnorm"
)

// Glossary extends the built-in keyword lexicon from a YAML file.
type Glossary struct {
	Terms    []GlossaryTerm `yaml:"terms"`
	Bodywork []string       `yaml:"bodywork"`
}

type GlossaryTerm struct {
	Phrase   string `yaml:"phrase"`
	Category string `yaml:"category"`
}

func LoadGlossary(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse glossary yaml: %w", err)
	}
	for i, term := range g.Terms {
		if strings.TrimSpace(term.Phrase) == "" {
			return nil, fmt.Errorf("glossary term %d: empty phrase", i+1)
		}
		category, ok := taxonomy.Canonicalize(term.Category)
		if !ok {
			return nil, fmt.Errorf("glossary term %q: unknown category %q", term.Phrase, term.Category)
		}
		g.Terms[i].Category = category
	}
	return &g, nil
}

// rules groups the glossary terms by category, keeping the order in which
// each category first appears in the file.
func (g *Glossary) rules() []Rule {
	var out []Rule
	index := make(map[string]int)
	for _, term := range g.Terms {
		phrase := textnorm.Normalize(term.Phrase)
		if phrase == "" {
			continue
		}
		i, ok := index[term.Category]
		if !ok {
			i = len(out)
			index[term.Category] = i
			out = append(out, Rule{Category: term.Category})
		}
		out[i].Keywords = append(out[i].Keywords, phrase)
	}
	return out
}

// hasPhrase reports whether phrase matches a term keyword as rules() would
// build it.
func (g *Glossary) hasPhrase(phrase string) bool {
	for _, r := range g.rules() {
		for _, k := range r.Keywords {
			if textnorm.Equal(k, phrase) {
				return true
			}
		}
	}
	return false
}

// AppendGlossaryTerm adds phrase to the glossary at path unless an
// equivalent phrase is already present.
func AppendGlossaryTerm(path, phrase, category string) error {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil
	}
	canonical, ok := taxonomy.Canonicalize(category)
	if !ok {
		return fmt.Errorf("unknown category %q", category)
	}

	var glossary Glossary
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &glossary); err != nil {
			return fmt.Errorf("parse existing glossary: %w", err)
		}
	}

	if glossary.hasPhrase(phrase) {
		return nil
	}

	glossary.Terms = append(glossary.Terms, GlossaryTerm{Phrase: phrase, Category: canonical})
	return saveGlossary(path, &glossary)
}

func saveGlossary(path string, glossary *Glossary) error {
	data, err := yaml.Marshal(glossary)
	if err != nil {
		return fmt.Errorf("marshal glossary: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
