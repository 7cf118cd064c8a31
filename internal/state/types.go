package state

import "encoding/json"

// Embedding is the vector a client computed for a word. The server stores it
// verbatim and never inspects it.
type Embedding []float64

// Entry is the stored record for one normalized word.
type Entry struct {
	Count     int       `json:"count"`
	Embedding Embedding `json:"embedding"`
	Color     *string   `json:"color"`
}

// Word is a snapshot row: an Entry together with its key.
type Word struct {
	Text      string    `json:"text"`
	Count     int       `json:"count"`
	Embedding Embedding `json:"embedding"`
	Color     *string   `json:"color"`
}

// Snapshot is a consistent copy of the whole store.
type Snapshot struct {
	Words            []Word          `json:"words"`
	Connections      json.RawMessage `json:"connections"`
	TotalSubmissions int             `json:"totalSubmissions"`
}

// emptyConnections is the connection list after start-up and after a reset.
var emptyConnections = json.RawMessage("[]")
