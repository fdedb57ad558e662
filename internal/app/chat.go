package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/canvai/canvai/internal/host"
	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/session"
)

// ChatService runs chat round-trips on the worker lane and hands the outcome
// back on the main lane, where host state may be touched.
type ChatService struct {
	registry *session.Registry
	sched    host.Scheduler
	log      logging.Logger
}

func NewChatService(registry *session.Registry, sched host.Scheduler, log logging.Logger) *ChatService {
	return &ChatService{registry: registry, sched: sched, log: log}
}

// Dispatch sends prompt through the user's agent. deliver runs on the main
// thread with either the reply or the error; the caller decides what a
// delivery to a since-departed user means (usually nothing).
//
// A dispatched job is never cancelled mid-flight: the context handed to the
// provider is fresh, so a reply that arrives after shutdown began still gets
// appended to history before delivery is dropped by the scheduler.
func (s *ChatService) Dispatch(userID uuid.UUID, prompt string, deliver func(reply string, err error)) {
	s.sched.RunAsync(func() {
		ctx := context.Background()

		var reply string
		agent, err := s.registry.GetOrCreateAgent(ctx, userID)
		if err == nil {
			reply, err = agent.Chat(ctx, prompt)
		}
		if err != nil {
			s.log.Warn(ctx, "chat failed", "user_id", userID, "error", err)
		}

		s.sched.RunMain(func() {
			deliver(reply, err)
		})
	})
}

// DispatchModels lists the models visible to the user's credential, for
// model-selection menus. Same lane discipline as Dispatch.
func (s *ChatService) DispatchModels(userID uuid.UUID, deliver func(models []string, err error)) {
	s.sched.RunAsync(func() {
		ctx := context.Background()

		var models []string
		agent, err := s.registry.GetOrCreateAgent(ctx, userID)
		if err == nil {
			models, err = agent.ListModels(ctx)
		}

		s.sched.RunMain(func() {
			deliver(models, err)
		})
	})
}

// DispatchCredentialTest probes a candidate secret without touching the
// user's stored one. ok reports whether the secret authenticated.
func (s *ChatService) DispatchCredentialTest(userID uuid.UUID, secret string, deliver func(ok bool, err error)) {
	s.sched.RunAsync(func() {
		ctx := context.Background()

		var ok bool
		agent, err := s.registry.GetOrCreateAgent(ctx, userID)
		if err == nil {
			ok, err = agent.TestCredential(ctx, secret)
		}

		s.sched.RunMain(func() {
			deliver(ok, err)
		})
	})
}
