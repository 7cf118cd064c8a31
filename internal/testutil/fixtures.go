package testutil

import (
	"encoding/json"

	"github.com/thruflo/wordcloud/internal/state"
)

// Submission is one addWord as a client would send it.
type Submission struct {
	Word      string
	Embedding state.Embedding
}

// SampleEmbedding returns a deterministic vector of dims values derived from
// seed. Different seeds give different vectors.
func SampleEmbedding(seed, dims int) state.Embedding {
	v := make(state.Embedding, dims)
	for i := range v {
		v[i] = float64((seed+1)*(i+1)%97) / 97
	}
	return v
}

// SampleSubmissions returns submissions that exercise normalization: "Cat"
// and " cat " share a key, so cat ends with count 2 and the first embedding.
// Returns a new slice each time.
func SampleSubmissions() []Submission {
	return []Submission{
		{Word: "Cat", Embedding: SampleEmbedding(1, 4)},
		{Word: "dog", Embedding: SampleEmbedding(2, 4)},
		{Word: " cat ", Embedding: SampleEmbedding(3, 4)},
		{Word: "fish", Embedding: SampleEmbedding(4, 4)},
	}
}

// SampleConnections returns a connection list between sample words.
func SampleConnections() json.RawMessage {
	return json.RawMessage(`[{"source":"cat","target":"dog"},{"source":"dog","target":"fish"}]`)
}

// SampleSnapshot is the state after SampleSubmissions, with no connections
// and no colors.
func SampleSnapshot() state.Snapshot {
	return state.Snapshot{
		Words: []state.Word{
			{Text: "cat", Count: 2, Embedding: SampleEmbedding(1, 4)},
			{Text: "dog", Count: 1, Embedding: SampleEmbedding(2, 4)},
			{Text: "fish", Count: 1, Embedding: SampleEmbedding(4, 4)},
		},
		Connections:      json.RawMessage("[]"),
		TotalSubmissions: 4,
	}
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
