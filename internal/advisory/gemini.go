package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/model"
)

// DefaultGeminiBaseURL is the Google Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// Gemini queries the Google Gemini REST API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// geminiResponse is the subset of the generateContent response we read.
type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	Error          *geminiError          `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// geminiFinishSafety is the finish reason reported when output was blocked.
const geminiFinishSafety = "SAFETY"

// NewGemini creates a Gemini advisor. Empty model and baseURL select the
// defaults, a nil httpClient selects http.DefaultClient.
func NewGemini(apiKey, model, baseURL string, httpClient *http.Client) *Gemini {
	if model == "" {
		model = config.DefaultGeminiModel
	}
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Gemini{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns "gemini:<model>".
func (g *Gemini) Name() string {
	return "gemini:" + g.model
}

// Query asks Gemini about rawURL.
func (g *Gemini) Query(ctx context.Context, rawURL string) model.AdvisoryOutcome {
	return outcome(g.generate(ctx, Prompt(rawURL)))
}

// generate sends a single-turn prompt and returns the concatenated reply text.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0,
			MaxOutputTokens: maxReplyTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// The key travels in a header so it never appears in URLs or transport errors.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}

	var response geminiResponse
	decodeErr := json.Unmarshal(raw, &response)

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && response.Error != nil && response.Error.Message != "" {
			msg = response.Error.Message
		}
		return "", &ProviderError{
			Reason:     statusReason(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	if decodeErr != nil {
		return "", &ProviderError{
			Reason:  model.ReasonProviderError,
			Message: "malformed response: " + decodeErr.Error(),
		}
	}

	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return "", &ProviderError{
			Reason:  model.ReasonSafetyFilter,
			Message: "prompt blocked: " + response.PromptFeedback.BlockReason,
		}
	}
	if len(response.Candidates) == 0 {
		return "", nil
	}

	candidate := response.Candidates[0]
	if candidate.FinishReason == geminiFinishSafety {
		return "", &ProviderError{
			Reason:  model.ReasonSafetyFilter,
			Message: "reply blocked by safety filter",
		}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
