// Package slacknotify posts run summaries to a Slack channel.
package slacknotify

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"partcat/internal/domain"
	"partcat/internal/integrations/llm"
	"partcat/internal/pipeline"
)

// RunReport is everything the summary message shows about one run.
type RunReport struct {
	InputPath string
	Provider  string
	Model     string
	Summary   pipeline.Summary
	Usage     llm.Usage
	Elapsed   time.Duration
}

type Notifier struct {
	api     *slack.Client
	channel string
}

// New builds a notifier for channelID. Extra options are passed to the
// Slack client, e.g. slack.OptionAPIURL in tests.
func New(token, channelID string, httpClient *http.Client, opts ...slack.Option) *Notifier {
	if httpClient != nil {
		opts = append([]slack.Option{slack.OptionHTTPClient(httpClient)}, opts...)
	}
	return &Notifier{api: slack.New(token, opts...), channel: channelID}
}

func (n *Notifier) PostRunSummary(ctx context.Context, report RunReport) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(summaryText(report), false),
		slack.MsgOptionBlocks(summaryBlocks(report)...),
	)
	if err != nil {
		return fmt.Errorf("post run summary to %s: %w", n.channel, err)
	}
	return nil
}

func modeTitle(mode domain.Mode) string {
	if mode == domain.ModeBodywork {
		return "Bodywork identification"
	}
	return "Category classification"
}

func summaryText(r RunReport) string {
	return fmt.Sprintf("%s finished for %s: %s", modeTitle(r.Summary.Mode), filepath.Base(r.InputPath), r.Summary.StatusLine())
}

func summaryBlocks(r RunReport) []slack.Block {
	s := r.Summary
	lines := []string{
		fmt.Sprintf("*Input:* `%s`", filepath.Base(r.InputPath)),
		fmt.Sprintf("*Output:* `%s`", filepath.Base(s.OutputPath)),
		fmt.Sprintf("*Sheet:* %s", s.Sheet),
		fmt.Sprintf("*Rows classified:* %d (model %d, keyword fallback %d)", s.Processed, s.FromModel, s.Fallbacks),
		fmt.Sprintf("*Already classified:* %d", s.AlreadyDone),
	}
	if s.Resumed {
		lines = append(lines, "*Resumed:* yes")
	}
	if s.Mode == domain.ModeBodywork {
		lines = append(lines, fmt.Sprintf("*Bodywork matches:* %d", s.BodyworkYes))
	}
	lines = append(lines,
		fmt.Sprintf("*Model:* %s / %s", r.Provider, r.Model),
		fmt.Sprintf("*Tokens:* %d in, %d out", r.Usage.InputTokens, r.Usage.OutputTokens),
		fmt.Sprintf("*Elapsed:* %s", r.Elapsed.Round(time.Second)),
	)

	return []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, modeTitle(s.Mode), false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false),
			nil, nil,
		),
	}
}
