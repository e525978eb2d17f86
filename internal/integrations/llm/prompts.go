package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"partcat/internal/domain"
	"partcat/internal/taxonomy"
)

const systemPrompt = "Eres un clasificador de repuestos automotrices. " +
	"Debes devolver JSON valido y usar solo categorias permitidas."

// promptRow is the wire shape of a row inside the user prompt.
type promptRow struct {
	Row         int    `json:"row"`
	SKU         string `json:"sku"`
	Descripcion string `json:"descripcion"`
	Referencia  string `json:"referencia"`
}

func encodeRows(rows []domain.Row) (string, error) {
	payload := make([]promptRow, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, promptRow{Row: r.Index, SKU: r.SKU, Descripcion: r.Description, Referencia: r.Reference})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("encoding rows: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func buildCategoryPrompt(rows []domain.Row) (string, error) {
	items, err := encodeRows(rows)
	if err != nil {
		return "", err
	}
	var categoryLines strings.Builder
	for _, c := range taxonomy.Categories() {
		categoryLines.WriteString("- " + c + "\n")
	}
	return "Clasifica cada producto en una sola categoria usando exclusivamente estas categorias:\n" +
		categoryLines.String() + "\n" +
		"Reglas:\n" +
		"1) Responde SOLO JSON valido (sin markdown).\n" +
		"2) Debes devolver exactamente un resultado por cada item.\n" +
		"3) No inventes nuevas categorias.\n" +
		"4) Si hay duda, elige la categoria mas probable por descripcion/referencia.\n\n" +
		"Formato exacto de salida:\n" +
		`{"items":[{"r":123,"c":"Motor"}]}` + "\n\n" +
		"Items a clasificar:\n" + items, nil
}

func buildBodyworkPrompt(rows []domain.Row) (string, error) {
	items, err := encodeRows(rows)
	if err != nil {
		return "", err
	}
	return "Determina si cada producto pertenece a la categoria " + taxonomy.Carroceria + ".\n" +
		"Responde SOLO JSON valido (sin markdown), un item por fila.\n" +
		"Formato exacto:\n" +
		`{"items":[{"r":123,"es_carroceria":"SI"}]}` + "\n" +
		"Valores permitidos en es_carroceria: SI o NO.\n\n" +
		"Items:\n" + items, nil
}
