package pipeline

import (
	"catchup-rag-be/pkg/rag/result"
)

// EventType enumerates the streaming payload kinds.
type EventType string

const (
	EventStatus    EventType = "status"
	EventPing      EventType = "ping"
	EventInterrupt EventType = "interrupt"
	EventResult    EventType = "result"
)

// Event is one entry in the ordered stream a live client observes.
type Event struct {
	Type       EventType            `json:"type"`
	Node       string               `json:"node,omitempty"`
	Message    string               `json:"message,omitempty"`
	Candidates []result.PRCandidate `json:"payload,omitempty"`
	Result     *TurnResult          `json:"result,omitempty"`
}

// TurnResult is the terminal payload of one fully answered turn.
type TurnResult struct {
	Answer         string                  `json:"answer"`
	Sources        []result.ResponseSource `json:"sources"`
	RelatedTickets result.List             `json:"related_tickets,omitempty"`
	ProcessTime    float64                 `json:"process_time"`
}

// Emitter receives pipeline events in order. Implementations must be cheap;
// emission happens inline between nodes.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(event Event)

func (f EmitterFunc) Emit(event Event) { f(event) }

// NopEmitter discards events; used by the single-shot entry point.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

func statusEvent(node, message string) Event {
	return Event{Type: EventStatus, Node: node, Message: message}
}
