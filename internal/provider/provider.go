// Package provider is the client side of the completion collaborator: an
// OpenAI-compatible HTTP API exposing chat, model listing and image
// generation. The exact wire schema is the provider's business; this package
// only fixes the shape of the calls and the error taxonomy.
package provider

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client is the completion collaborator contract. Secrets are passed per
// call: the same client serves every user.
type Client interface {
	// Chat sends the full conversation context and returns the assistant
	// reply text. timeout bounds the whole round-trip.
	Chat(ctx context.Context, secret, model string, timeout time.Duration, messages []Message) (string, error)

	// ListModels returns the model ids available to the given secret.
	ListModels(ctx context.Context, secret string) ([]string, error)

	// GenerateImage asks the provider to render prompt at the given pixel
	// size and returns the URL of the resulting image.
	GenerateImage(ctx context.Context, secret, prompt string, width, height int) (string, error)

	// DownloadImage fetches and decodes an image by URL.
	DownloadImage(ctx context.Context, url string) (image.Image, error)
}

// APIError is a non-2xx provider response. Status is the HTTP status, Code
// the provider-supplied machine-readable code (may be empty), Message the
// human-readable detail.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: %s (http %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("provider: %s (http %d)", e.Message, e.Status)
}

// IsAuthError reports whether err means the credential was rejected, as
// opposed to any other provider or transport failure. Callers use this to
// choose "re-enter your key" over generic retry messaging.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 401 || apiErr.Code == "invalid_api_key"
}

// IsModelNotFound reports whether err means the requested model does not
// exist or is not available to this credential.
func IsModelNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "model_not_found"
}
