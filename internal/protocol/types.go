// Package protocol defines the events exchanged between the word cloud server
// and its clients over the real-time channel.
//
// Every frame is one JSON Event envelope. The Type names the event and Data
// carries the type-specific payload, decoded with the typed accessors.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thruflo/wordcloud/internal/state"
)

// MessageType identifies the type of event.
type MessageType string

const (
	// Server → Client event types

	// TypeInitialize carries the full state. Sent to a joining client and to
	// everyone after a reset.
	TypeInitialize MessageType = "initialize"
	// TypeWordAdded announces an accepted word submission.
	TypeWordAdded MessageType = "wordAdded"
	// TypeConnectionsUpdated carries a replaced connection list.
	TypeConnectionsUpdated MessageType = "connectionsUpdated"
	// TypeColorChanged announces a new color for a word.
	TypeColorChanged MessageType = "colorChanged"

	// Client → Server event types

	// TypeAddWord submits a word with its embedding.
	TypeAddWord MessageType = "addWord"
	// TypeUpdateConnections replaces the connection list.
	TypeUpdateConnections MessageType = "updateConnections"
	// TypeChangeColor sets the color of a word.
	TypeChangeColor MessageType = "changeColor"
	// TypeReset clears all state. It has no payload.
	TypeReset MessageType = "reset"
)

// ErrMalformed is wrapped by every payload decoding failure.
var ErrMalformed = errors.New("malformed event")

// Event represents one frame on the channel.
type Event struct {
	// Seq is assigned by the server to outbound events, in the order they
	// were produced. Zero on inbound events.
	Seq uint64 `json:"seq,omitempty"`

	// Type identifies what kind of event this is.
	Type MessageType `json:"type"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`

	// Data contains the type-specific payload.
	// Use the typed accessor methods to get the concrete type.
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent creates a new Event with the given type and data.
func NewEvent(msgType MessageType, data any) (*Event, error) {
	e := &Event{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	if data == nil {
		return e, nil
	}

	if raw, ok := data.(json.RawMessage); ok {
		e.Data = raw
		return e, nil
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	e.Data = dataBytes
	return e, nil
}

// MustNewEvent creates a new Event, panicking on error.
// Use only when the data is known to be serializable.
func MustNewEvent(msgType MessageType, data any) *Event {
	e, err := NewEvent(msgType, data)
	if err != nil {
		panic(err)
	}
	return e
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes an Event from JSON bytes.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &e, nil
}

func decode(e *Event, want MessageType, v any) error {
	if e.Type != want {
		return fmt.Errorf("event is not %s: %s", want, e.Type)
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrMalformed, want)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, want, err)
	}
	return nil
}

// AddWord is the payload of an addWord event.
type AddWord struct {
	Word      string          `json:"word"`
	Embedding state.Embedding `json:"embedding"`
}

// ChangeColor is the payload of a changeColor event. A null color clears the
// word's color.
type ChangeColor struct {
	Word  string  `json:"word"`
	Color *string `json:"color"`
}

// WordAdded is the payload of a wordAdded event.
type WordAdded struct {
	Word             string          `json:"word"`
	Count            int             `json:"count"`
	Embedding        state.Embedding `json:"embedding"`
	Color            *string         `json:"color"`
	TotalSubmissions int             `json:"totalSubmissions"`
}

// ColorChanged is the payload of a colorChanged event.
type ColorChanged struct {
	Word  string  `json:"word"`
	Color *string `json:"color"`
}

// Initialize is the payload of an initialize event.
type Initialize = state.Snapshot

// AddWordData returns the payload of an addWord event.
func (e *Event) AddWordData() (*AddWord, error) {
	var data AddWord
	if err := decode(e, TypeAddWord, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ChangeColorData returns the payload of a changeColor event.
func (e *Event) ChangeColorData() (*ChangeColor, error) {
	var data ChangeColor
	if err := decode(e, TypeChangeColor, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ConnectionsData returns the raw connection list of an updateConnections or
// connectionsUpdated event. The list is opaque and is not validated beyond
// being well-formed JSON; a missing payload yields JSON null.
func (e *Event) ConnectionsData() (json.RawMessage, error) {
	if e.Type != TypeUpdateConnections && e.Type != TypeConnectionsUpdated {
		return nil, fmt.Errorf("event does not carry connections: %s", e.Type)
	}
	if len(e.Data) == 0 {
		return json.RawMessage("null"), nil
	}
	return e.Data, nil
}

// InitializeData returns the payload of an initialize event.
func (e *Event) InitializeData() (*Initialize, error) {
	var data Initialize
	if err := decode(e, TypeInitialize, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// WordAddedData returns the payload of a wordAdded event.
func (e *Event) WordAddedData() (*WordAdded, error) {
	var data WordAdded
	if err := decode(e, TypeWordAdded, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ColorChangedData returns the payload of a colorChanged event.
func (e *Event) ColorChangedData() (*ColorChanged, error) {
	var data ColorChanged
	if err := decode(e, TypeColorChanged, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
