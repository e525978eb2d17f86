package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAI talks to the chat completions endpoint directly over HTTP.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

type OpenAIOptions struct {
	APIKey              string
	Model               string
	BaseURL             string
	MaxCompletionTokens int
	HTTPClient          *http.Client
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	o := &OpenAI{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxTokens:  opts.MaxCompletionTokens,
		httpClient: opts.HTTPClient,
	}
	if o.model == "" {
		o.model = DefaultOpenAIModel
	}
	if o.baseURL == "" {
		o.baseURL = DefaultOpenAIBaseURL
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}
	return o
}

func (o *OpenAI) Provider() string { return ProviderOpenAI }
func (o *OpenAI) Model() string    { return o.model }

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	reqBody := openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxCompletionTokens: o.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", Usage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", Usage{}, newError(ReasonTransport, err, "openai request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, newError(ReasonTransport, err, "reading openai response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", Usage{}, newError(ReasonTransport, nil, "HTTP %d: %s", resp.StatusCode, excerpt(string(respBody), 800))
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", Usage{}, newError(ReasonMalformed, err, "parsing openai response: %s", excerpt(string(respBody), 500))
	}
	if openAIResp.Error != nil {
		return "", Usage{}, newError(ReasonTransport, nil, "openai api error: %s", openAIResp.Error.Message)
	}

	usage := Usage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	if len(openAIResp.Choices) == 0 {
		return "", usage, newError(ReasonNoChoices, nil, "reply without choices: %s", excerpt(string(respBody), 500))
	}
	choice := openAIResp.Choices[0]
	if choice.FinishReason == "length" {
		return "", usage, newError(ReasonTruncated, nil, "finish_reason=length with max_completion_tokens=%d", o.maxTokens)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", usage, newError(ReasonEmptyContent, nil, "finish_reason=%q", choice.FinishReason)
	}
	return choice.Message.Content, usage, nil
}
