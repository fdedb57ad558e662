package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/canvai/canvai/internal/logging"
)

// OpenAI implements Client against the OpenAI wire format. BaseURL is
// configurable so any compatible server (OpenRouter, vLLM, Ollama, ...)
// works too.
type OpenAI struct {
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
}

// NewOpenAI returns a client rooted at baseURL (e.g. "https://api.openai.com").
func NewOpenAI(baseURL string, log logging.Logger) *OpenAI {
	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        log,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Chat sends the full conversation context and returns the reply text.
func (c *OpenAI) Chat(ctx context.Context, secret, model string, timeout time.Duration, messages []Message) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var resp chatResponse
	err := c.post(ctx, "/v1/chat/completions", secret, chatRequest{Model: model, Messages: messages}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ListModels returns the model ids available to the given secret.
func (c *OpenAI) ListModels(ctx context.Context, secret string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	var resp modelsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GenerateImage renders prompt at the given pixel size and returns the image URL.
func (c *OpenAI) GenerateImage(ctx context.Context, secret, prompt string, width, height int) (string, error) {
	body := imageRequest{Prompt: prompt, N: 1, Size: fmt.Sprintf("%dx%d", width, height)}

	var resp imageResponse
	if err := c.post(ctx, "/v1/images/generations", secret, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("provider returned no image")
	}
	return resp.Data[0].URL, nil
}

func (c *OpenAI) post(ctx context.Context, path, secret string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do executes the request and decodes the response into out. Non-2xx
// responses become a typed *APIError carrying the provider's status, code
// and message.
func (c *OpenAI) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope errorResponse
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
			apiErr.Code = envelope.Error.Code
			if apiErr.Code == "" {
				apiErr.Code = envelope.Error.Type
			}
		}
		c.log.Warn(req.Context(), "provider error", "status", apiErr.Status, "code", apiErr.Code)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
