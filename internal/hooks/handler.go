package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/events"
	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/metrics"
)

// topicPrefix is stripped from event topics to get hook event names.
const topicPrefix = "policyconf.configuration."

// queueSize bounds events waiting for Run.
const queueSize = 64

// Hook is one command and the events that trigger it.
type Hook struct {
	Command string
	Events  []string // "saved", "removed", "applied", "exported", "imported"
	Timeout time.Duration
	Dir     string
}

// OutputFunc returns the current policies.json text. It is piped to the
// hook command on applied events.
type OutputFunc func(ctx context.Context) (string, error)

// payload is the union of the configuration event fields a hook can see.
type payload struct {
	Configuration events.Summary `json:"configuration"`
	Location      string         `json:"location,omitempty"`
	Count         *int           `json:"count,omitempty"`
}

// Handler runs a Hook for matching events. It can be used as an in-process
// events.Publisher (drained by Run) or fed from a Subscriber.
type Handler struct {
	hook   Hook
	output OutputFunc
	logger zerolog.Logger
	queue  chan events.Message
}

// Compile-time check that Handler implements Publisher.
var _ events.Publisher = (*Handler)(nil)

// NewHandler returns a handler for hook. output may be nil.
func NewHandler(hook Hook, output OutputFunc) *Handler {
	return &Handler{
		hook:   hook,
		output: output,
		logger: log.WithComponent("hooks"),
		queue:  make(chan events.Message, queueSize),
	}
}

// EventName returns the hook event name for topic, e.g. "applied".
func EventName(topic string) string {
	return strings.TrimPrefix(topic, topicPrefix)
}

// Matches reports whether topic triggers the hook.
func (h *Handler) Matches(topic string) bool {
	return h.hook.Command != "" && slices.Contains(h.hook.Events, EventName(topic))
}

// Handle runs the hook for msg and reports whether it ran.
func (h *Handler) Handle(ctx context.Context, msg events.Message) (Result, bool) {
	if !h.Matches(msg.Topic) {
		return Result{}, false
	}
	var p payload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		h.logger.Warn().Err(err).Str("topic", msg.Topic).Msg("bad event payload")
		return Result{}, false
	}

	name := EventName(msg.Topic)
	env := map[string]string{
		"POLICYCONF_EVENT":               name,
		"POLICYCONF_CONFIGURATION_ID":    p.Configuration.ID,
		"POLICYCONF_CONFIGURATION_NAME":  p.Configuration.Name,
		"POLICYCONF_CONFIGURATION_INDEX": strconv.Itoa(p.Configuration.Index),
	}
	if p.Location != "" {
		env["POLICYCONF_EXPORT_LOCATION"] = p.Location
	}
	if p.Count != nil {
		env["POLICYCONF_CONFIGURATION_COUNT"] = strconv.Itoa(*p.Count)
	}

	var stdin []byte
	if name == "applied" && h.output != nil {
		out, err := h.output(ctx)
		if err != nil {
			h.logger.Warn().Err(err).Msg("policies output unavailable; running hook without stdin")
		} else {
			stdin = []byte(out)
		}
	}

	result := Execute(ctx, h.hook.Command, h.hook.Timeout, h.hook.Dir, env, stdin)
	metrics.RecordOperation("hook", result.Err)

	ev := h.logger.Info()
	if result.Err != nil {
		ev = h.logger.Warn().Err(result.Err)
	}
	ev.Str("event", "hook.executed").
		Str("trigger", name).
		Str("id", p.Configuration.ID).
		Str("output", result.Output).
		Bool("ok", result.Err == nil).
		Msg("executed hook")
	return result, true
}

// Publish queues matching events for Run. It never blocks; when the queue
// is full the event is dropped and an error returned.
func (h *Handler) Publish(_ context.Context, topic string, event any) error {
	if !h.Matches(topic) {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("hooks: marshal %s: %w", topic, err)
	}
	select {
	case h.queue <- events.Message{Topic: topic, Data: data}:
		return nil
	default:
		return fmt.Errorf("hooks: queue full, dropped %s", topic)
	}
}

// Close is a no-op; Run stops with its context.
func (h *Handler) Close() error { return nil }

// Run executes queued hooks one at a time until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.queue:
			h.Handle(ctx, msg)
		}
	}
}

// StartSubscriber runs the hook for configuration events received from sub.
// It blocks until ctx is cancelled or the subscription closes.
func (h *Handler) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("hooks: subscribe: %w", err)
	}
	defer cancel()

	h.logger.Info().Strs("events", h.hook.Events).Msg("hooks subscriber started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("hooks subscriber stopping")
			return nil
		case msg, ok := <-ch:
			if !ok {
				h.logger.Info().Msg("hooks subscription channel closed")
				return nil
			}
			h.Handle(ctx, msg)
		}
	}
}
