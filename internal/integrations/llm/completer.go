package llm

import "context"

// Completer sends one system+user prompt pair to a language model and
// returns the text of the reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error)
	Provider() string
	Model() string
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-5-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
)
