package slacknotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"partcat/internal/domain"
	"partcat/internal/integrations/llm"
	"partcat/internal/pipeline"
)

func newMockSlack(t *testing.T, ok bool) (*httptest.Server, *[]string, *[]string) {
	t.Helper()
	var tokens []string
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		tokens = append(tokens, r.Form.Get("token"))
		bodies = append(bodies, r.Form.Get("channel")+"|"+r.Form.Get("text")+"|"+r.Form.Get("blocks"))
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1700000000.000100"})
	}))
	t.Cleanup(server.Close)
	return server, &tokens, &bodies
}

func sampleReport() RunReport {
	return RunReport{
		InputPath: "/data/repuestos.xlsx",
		Provider:  "openai",
		Model:     "gpt-5-mini",
		Summary: pipeline.Summary{
			Mode:        domain.ModeBodywork,
			OutputPath:  "/data/repuestos_carroceria.xlsx",
			Sheet:       "Hoja1",
			Pending:     10,
			Processed:   10,
			FromModel:   8,
			Fallbacks:   2,
			BodyworkYes: 3,
		},
		Usage:   llm.Usage{InputTokens: 1200, OutputTokens: 300},
		Elapsed: 42 * time.Second,
	}
}

func TestPostRunSummary(t *testing.T) {
	server, tokens, bodies := newMockSlack(t, true)
	n := New("xoxb-test", "C123", server.Client(), slack.OptionAPIURL(server.URL+"/api/"))

	if err := n.PostRunSummary(context.Background(), sampleReport()); err != nil {
		t.Fatalf("PostRunSummary: %v", err)
	}
	if len(*bodies) != 1 {
		t.Fatalf("expected one request, got %d", len(*bodies))
	}
	body := (*bodies)[0]
	for _, want := range []string{"C123|", "Bodywork identification finished for repuestos.xlsx", "bodywork matches: 3", "keyword fallback 2", "1200 in, 300 out"} {
		if !strings.Contains(body, want) {
			t.Fatalf("request body missing %q:\n%s", want, body)
		}
	}
	if token := (*tokens)[0]; token != "xoxb-test" {
		t.Fatalf("unexpected token form field %q", token)
	}
}

func TestPostRunSummarySlackError(t *testing.T) {
	server, _, _ := newMockSlack(t, false)
	n := New("xoxb-test", "C404", server.Client(), slack.OptionAPIURL(server.URL+"/api/"))

	err := n.PostRunSummary(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}

func TestSummaryBlocksCategoryMode(t *testing.T) {
	r := sampleReport()
	r.Summary.Mode = domain.ModeCategory
	blocks := summaryBlocks(r)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	section, ok := blocks[1].(*slack.SectionBlock)
	if !ok {
		t.Fatalf("expected section block, got %T", blocks[1])
	}
	if strings.Contains(section.Text.Text, "Bodywork matches") {
		t.Fatalf("category summary must not include bodywork count:\n%s", section.Text.Text)
	}
	if header, ok := blocks[0].(*slack.HeaderBlock); !ok || header.Text.Text != "Category classification" {
		t.Fatalf("unexpected header block %#v", blocks[0])
	}
}
