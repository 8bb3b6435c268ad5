package events

import (
	"encoding/json"
	"fmt"
	"time"

	"taskhub/internal/domain"
)

// Appender is the part of a store transaction the writer needs.
type Appender interface {
	AppendEvent(domain.Event) domain.Event
}

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(tx Appender, evtType, entityKind, entityID, actorID string, payload EventPayload) (domain.Event, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal event payload: %w", err)
	}
	return tx.AppendEvent(domain.Event{
		TS:         w.Now().UTC().Format(time.RFC3339),
		Type:       evtType,
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		Payload:    string(data),
	}), nil
}
