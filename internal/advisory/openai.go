package advisory

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/model"
)

// OpenAI queries an OpenAI-compatible chat completion API.
// Any gateway speaking the same protocol (Azure OpenAI proxies, Ollama,
// vLLM) works by overriding the base URL.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI advisor. An empty model selects config.DefaultOpenAIModel,
// an empty baseURL the public OpenAI endpoint.
func NewOpenAI(apiKey, model, baseURL string, httpClient *http.Client) *OpenAI {
	if model == "" {
		model = config.DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name returns "openai:<model>".
func (o *OpenAI) Name() string {
	return "openai:" + o.model
}

// Query asks the chat completion endpoint about rawURL.
func (o *OpenAI) Query(ctx context.Context, rawURL string) model.AdvisoryOutcome {
	return outcome(o.complete(ctx, Prompt(rawURL)))
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &ProviderError{
			Reason:  model.ReasonSafetyFilter,
			Message: "reply blocked by content filter",
		}
	}
	return choice.Message.Content, nil
}
