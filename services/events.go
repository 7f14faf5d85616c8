package services

import (
	"context"

	"github.com/samber/oops"

	"github.com/lborres/tala/core"
)

// EventRecorder appends events attributed to an authenticated identity
type EventRecorder struct {
	events  core.EventStorage
	metrics *Metrics
}

var _ core.EventHandler = (*EventRecorder)(nil)

func NewEventRecorder(events core.EventStorage, metrics *Metrics) *EventRecorder {
	return &EventRecorder{events: events, metrics: metrics}
}

// Record stores the event for actor, who must come from AuthService.Authenticate
func (r *EventRecorder) Record(ctx context.Context, actor *core.PublicIdentity, input core.EventInput) (_ *core.Event, err error) {
	defer func() { r.metrics.observeEvent(err) }()

	if actor == nil || actor.Username == "" {
		return nil, oops.Code("EVENT_UNAUTHENTICATED").Wrap(core.ErrUnauthenticated)
	}

	if err := input.Validate(); err != nil {
		return nil, oops.Code("EVENT_MISSING_FIELDS").
			With("username", actor.Username).
			With("validation", err.Error()).
			Wrap(core.ErrMissingFields)
	}

	event := &core.Event{
		Username:   actor.Username,
		EventType:  input.EventType,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		EventData:  input.NormalizedEventData(),
	}

	if err := r.events.AppendEvent(ctx, event); err != nil {
		return nil, oops.Code("EVENT_APPEND_FAILED").
			With("username", actor.Username).
			With("event_type", input.EventType).
			Wrap(err)
	}

	return event, nil
}
