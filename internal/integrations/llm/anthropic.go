package llm

import (
	"context"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic uses the official SDK against the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

type AnthropicOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

func NewAnthropic(opts AnthropicOptions) *Anthropic {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(0)}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: int64(opts.MaxTokens),
	}
}

func (a *Anthropic) Provider() string { return ProviderAnthropic }
func (a *Anthropic) Model() string    { return a.model }

func (a *Anthropic) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", Usage{}, newError(ReasonTransport, err, "anthropic request failed")
	}
	usage := Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	if message.StopReason == anthropic.StopReasonMaxTokens {
		return "", usage, newError(ReasonTruncated, nil, "stop_reason=max_tokens with max_tokens=%d", a.maxTokens)
	}
	if len(message.Content) == 0 {
		return "", usage, newError(ReasonNoChoices, nil, "reply without content blocks")
	}
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, usage, nil
		}
	}
	return "", usage, newError(ReasonEmptyContent, nil, "no text block, stop_reason=%q", message.StopReason)
}
