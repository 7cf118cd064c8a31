package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wordcloud/internal/protocol"
	"github.com/thruflo/wordcloud/internal/state"
)

// AssertEventType asserts that ev is non-nil and of the given type.
func AssertEventType(t *testing.T, ev *protocol.Event, want protocol.MessageType) {
	t.Helper()
	require.NotNil(t, ev, "event is nil")
	require.Equal(t, want, ev.Type, "event type mismatch")
}

// AssertSeqIncreasing asserts that events carry strictly increasing sequence
// numbers.
func AssertSeqIncreasing(t *testing.T, events []*protocol.Event) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq,
			"event[%d] (%s) not after event[%d] (%s)", i, events[i].Type, i-1, events[i-1].Type)
	}
}

// AssertWordCounts asserts that snap holds exactly the given words with the
// given counts.
func AssertWordCounts(t *testing.T, snap *state.Snapshot, want map[string]int) {
	t.Helper()
	require.NotNil(t, snap, "snapshot is nil")

	got := make(map[string]int, len(snap.Words))
	for _, w := range snap.Words {
		got[w.Text] = w.Count
	}
	assert.Equal(t, want, got, "word counts mismatch")
}

// AssertWordColor asserts the color of one word. A nil want means no color.
func AssertWordColor(t *testing.T, snap *state.Snapshot, word string, want *string) {
	t.Helper()
	require.NotNil(t, snap, "snapshot is nil")

	for _, w := range snap.Words {
		if w.Text != word {
			continue
		}
		if want == nil {
			assert.Nil(t, w.Color, "%s should have no color", word)
			return
		}
		require.NotNil(t, w.Color, "%s should have a color", word)
		assert.Equal(t, *want, *w.Color, "%s color mismatch", word)
		return
	}
	t.Errorf("word %q not in snapshot", word)
}

// AssertEmptySnapshot asserts the state right after start-up or a reset.
func AssertEmptySnapshot(t *testing.T, snap *state.Snapshot) {
	t.Helper()
	require.NotNil(t, snap, "snapshot is nil")
	assert.Empty(t, snap.Words, "words should be empty")
	assert.JSONEq(t, `[]`, string(snap.Connections), "connections should be empty")
	assert.Zero(t, snap.TotalSubmissions, "total submissions should be zero")
}
