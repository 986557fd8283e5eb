package advisory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/nao1215/phishguard/internal/model"
)

// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
// Expected format is "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// maxDetailLength caps the provider message kept in an outcome detail.
// Error bodies can be several kilobytes of JSON.
const maxDetailLength = 160

// ProviderError is returned by a backend when the provider answered but
// did not produce a usable reply.
type ProviderError struct {
	// Reason is the classification of the failure.
	Reason model.UnavailableReason

	// StatusCode is the HTTP status, zero when the failure came from a 200 response.
	StatusCode int

	// Message is the provider's own explanation, if any.
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
	}
	return "provider refused: " + e.Message
}

// statusReason maps a non-200 HTTP status to an unavailable reason.
func statusReason(status int) model.UnavailableReason {
	switch status {
	case http.StatusTooManyRequests:
		return model.ReasonQuota
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.ReasonUnauthorized
	default:
		return model.ReasonProviderError
	}
}

// classify turns a backend error into an unavailable reason and a short detail.
func classify(err error) (model.UnavailableReason, string) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Reason, truncate(providerErr.Message)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusReason(apiErr.HTTPStatusCode), truncate(apiErr.Message)
	}

	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) && requestErr.HTTPStatusCode != 0 {
		return statusReason(requestErr.HTTPStatusCode), truncate(requestErr.HTTPStatus)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return model.ReasonCanceled, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return model.ReasonTimeout, "deadline exceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ReasonTimeout, truncate(err.Error())
	}

	return model.ReasonNetwork, truncate(err.Error())
}

// outcome folds a backend result into an AdvisoryOutcome.
func outcome(text string, err error) model.AdvisoryOutcome {
	if err != nil {
		reason, detail := classify(err)
		return model.Unavailable(reason, detail)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return model.Unavailable(model.ReasonEmptyReply, "provider returned no text")
	}
	return model.Reply(text)
}

func truncate(s string) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= maxDetailLength {
		return string(runes)
	}
	return string(runes[:maxDetailLength]) + "..."
}
