package judgment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPInvoker calls an OpenAI-compatible chat completions endpoint. The LLM
// invocation transport is out of scope for the core (spec.md §1); this is
// the minimal default Invoker implementation, grounded on the teacher's
// stdlib net/http usage in internal/llm (its concrete clients are provider-
// specific but all built directly on net/http, no third-party HTTP client).
type HTTPInvoker struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Invoke posts prompt as a single user message to the configured endpoint
// and returns the first choice's content.
func (h *HTTPInvoker) Invoke(ctx context.Context, model, prompt string) (string, error) {
	if h.Client == nil {
		h.Client = http.DefaultClient
	}
	_, modelName, ok := strings.Cut(model, "/")
	if !ok {
		modelName = model
	}

	body, err := json.Marshal(chatRequest{
		Model:    modelName,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("judgment: llm endpoint returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("judgment: llm response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
