package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"partcat/internal/domain"
	"partcat/internal/taxonomy"
)

// Client turns batches of rows into classification requests and maps the
// replies back onto row indices. Rows the reply does not resolve are
// omitted from the result rather than reported as errors.
type Client struct {
	completer Completer
	logger    *slog.Logger
	usage     Usage
	calls     int
	observe   func(usage Usage, err error)
}

func NewClient(completer Completer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{completer: completer, logger: logger}
}

// OnRequest registers fn to be called after every request with its token
// usage and final error (nil on success).
func (c *Client) OnRequest(fn func(usage Usage, err error)) {
	c.observe = fn
}

// Usage returns the token usage accumulated over every call so far.
func (c *Client) Usage() Usage { return c.usage }

// Calls returns the number of requests sent so far.
func (c *Client) Calls() int { return c.calls }

func (c *Client) Provider() string { return c.completer.Provider() }
func (c *Client) Model() string    { return c.completer.Model() }

func (c *Client) ClassifyCategories(ctx context.Context, rows []domain.Row) (map[int]string, error) {
	prompt, err := buildCategoryPrompt(rows)
	if err != nil {
		return nil, err
	}
	items, err := c.request(ctx, "category", prompt, len(rows))
	if err != nil {
		return nil, err
	}

	batch := rowSet(rows)
	out := make(map[int]string, len(items))
	for _, item := range items {
		row, ok := rowID(item)
		if !ok || !batch[row] {
			continue
		}
		category, ok := taxonomy.Canonicalize(labelField(item, "c", "categoria"))
		if !ok {
			continue
		}
		out[row] = category
	}
	return out, nil
}

func (c *Client) ClassifyBodywork(ctx context.Context, rows []domain.Row) (map[int]bool, error) {
	prompt, err := buildBodyworkPrompt(rows)
	if err != nil {
		return nil, err
	}
	items, err := c.request(ctx, "bodywork", prompt, len(rows))
	if err != nil {
		return nil, err
	}

	batch := rowSet(rows)
	out := make(map[int]bool, len(items))
	for _, item := range items {
		row, ok := rowID(item)
		if !ok || !batch[row] {
			continue
		}
		flag, ok := taxonomy.ParseYesNo(labelField(item, "es_carroceria", "c"))
		if !ok {
			continue
		}
		out[row] = flag
	}
	return out, nil
}

func (c *Client) request(ctx context.Context, kind, prompt string, n int) ([]map[string]any, error) {
	c.calls++
	c.logger.Debug("llm classify", "kind", kind, "provider", c.completer.Provider(), "model", c.completer.Model(), "items", n)

	text, usage, err := c.completer.Complete(ctx, systemPrompt, prompt)
	c.usage.Add(usage)
	var items []map[string]any
	if err == nil {
		c.logger.Debug("llm response", "kind", kind, "size", len(text), "tokens_in", usage.InputTokens, "tokens_out", usage.OutputTokens)
		items, err = parseItems(text)
	}
	if c.observe != nil {
		c.observe(usage, err)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

var codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// stripCodeFence returns the body of a leading markdown code fence, or the
// trimmed text when there is none.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if m := codeFence.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return text
}

// parseItems decodes {"items":[...]} and returns the object entries of
// items. Non-object entries are dropped.
func parseItems(text string) ([]map[string]any, error) {
	body := stripCodeFence(text)
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, newError(ReasonMalformed, err, "decoding reply: %s", excerpt(body, 500))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newError(ReasonMalformed, nil, "trailing data after JSON object: %s", excerpt(body, 500))
	}
	raw, ok := doc["items"]
	if !ok {
		return nil, newError(ReasonMalformed, nil, "reply has no \"items\"")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, newError(ReasonMalformed, nil, "\"items\" is not a list")
	}

	items := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if obj, ok := v.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items, nil
}

// rowID reads "r" (or "row" when "r" is absent) and accepts only integer
// literals.
func rowID(item map[string]any) (int, bool) {
	v, ok := item["r"]
	if !ok {
		v = item["row"]
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	id, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(id), true
}

// labelField reads key, falling back to alt when key is absent.
func labelField(item map[string]any, key, alt string) string {
	v, ok := item[key]
	if !ok {
		v = item[alt]
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func rowSet(rows []domain.Row) map[int]bool {
	set := make(map[int]bool, len(rows))
	for _, r := range rows {
		set[r.Index] = true
	}
	return set
}
