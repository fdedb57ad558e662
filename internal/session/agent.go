// Package session holds the per-user conversational state: one Agent per
// connected user, cached in a Registry that also resolves persisted model
// overrides and vault-encrypted credentials.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/provider"
)

// DefaultMaxPairs bounds the conversation context to this many
// user+assistant pairs unless configured otherwise.
const DefaultMaxPairs = 10

// Agent is one user's conversation: bounded history, current model choice
// and the secret authorizing provider calls. The secret lives in memory
// only and is never logged.
//
// The mutex serializes Chat for the whole provider round-trip, so two
// concurrent calls from the same user always produce whole, ordered pairs.
// Different users' agents are fully independent.
type Agent struct {
	userID uuid.UUID
	client provider.Client
	log    logging.Logger

	mu       sync.Mutex
	secret   string
	model    string
	timeout  time.Duration
	maxPairs int
	history  []provider.Message
}

// NewAgent returns an Agent with empty history. maxPairs values below one
// fall back to DefaultMaxPairs.
func NewAgent(userID uuid.UUID, client provider.Client, secret, model string, timeout time.Duration, maxPairs int, log logging.Logger) *Agent {
	if maxPairs < 1 {
		maxPairs = DefaultMaxPairs
	}
	return &Agent{
		userID:   userID,
		client:   client,
		secret:   secret,
		model:    model,
		timeout:  timeout,
		maxPairs: maxPairs,
		log:      log.With("user_id", userID.String()),
	}
}

// Chat appends the user turn, sends the full bounded history to the
// provider, appends the assistant reply and trims to the pair bound.
//
// On a provider failure the already-appended user turn stays in history so
// a retry keeps its context; no assistant turn is added. The bound applies
// on both paths, so repeated failures cannot grow history without limit.
func (a *Agent) Chat(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, provider.Message{Role: provider.RoleUser, Content: prompt})

	reply, err := a.client.Chat(ctx, a.secret, a.model, a.timeout, slices.Clone(a.history))
	if err != nil {
		a.log.Warn(ctx, "chat completion failed", "model", a.model, "error", err)
		a.trimHistory()
		return "", err
	}

	a.history = append(a.history, provider.Message{Role: provider.RoleAssistant, Content: reply})
	a.trimHistory()

	return reply, nil
}

// trimHistory evicts from the head until the pair bound holds. Eviction is
// role-aware: a user turn with its reply goes as one unit, and a lone user
// turn left by a failed call goes alone, so no eviction ever strands half
// of a later pair.
func (a *Agent) trimHistory() {
	for len(a.history) > 2*a.maxPairs {
		n := 1
		if a.history[0].Role == provider.RoleUser &&
			len(a.history) > 1 && a.history[1].Role == provider.RoleAssistant {
			n = 2
		}
		a.history = a.history[n:]
	}
}

// TestCredential issues a lightweight model-listing probe for a candidate
// secret, without touching history or the stored secret. It reports false
// when the provider rejects the credential and an error for any other
// failure, so callers can tell "wrong key" from "provider down".
func (a *Agent) TestCredential(ctx context.Context, secret string) (bool, error) {
	_, err := a.client.ListModels(ctx, secret)
	if provider.IsAuthError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListModels forwards to the provider. Ordering and pagination are the
// caller's business.
func (a *Agent) ListModels(ctx context.Context) ([]string, error) {
	a.mu.Lock()
	secret := a.secret
	a.mu.Unlock()

	return a.client.ListModels(ctx, secret)
}

// SetModel switches the model for subsequent calls. Existing history is kept.
func (a *Agent) SetModel(model string) {
	a.mu.Lock()
	a.model = model
	a.mu.Unlock()
}

// SetCredential swaps the in-memory secret.
func (a *Agent) SetCredential(secret string) {
	a.mu.Lock()
	a.secret = secret
	a.mu.Unlock()
}

// Model returns the current model id.
func (a *Agent) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Secret returns the current in-memory secret. Callers must never log it.
func (a *Agent) Secret() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.secret
}

// History returns a copy of the current conversation.
func (a *Agent) History() []provider.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.history)
}
