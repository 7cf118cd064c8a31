// Package testutil provides shared test helpers for wordcloud.
//
// # Fixtures
//
// The fixtures.go file provides sample data:
//
//   - SampleEmbedding(seed, dims) - a deterministic vector
//   - SampleSubmissions() - an ordered list of word submissions
//   - SampleConnections() - a connection list as raw JSON
//   - SampleSnapshot() - the snapshot SampleSubmissions produces
//   - StrPtr(s) - a pointer for optional colors
//
// # Assertions
//
// The assertions.go file provides event and snapshot assertions:
//
//   - AssertEventType(t, ev, type) - checks the envelope type
//   - AssertSeqIncreasing(t, events) - checks server ordering
//   - AssertWordCounts(t, snap, counts) - compares words and counts
//   - AssertWordColor(t, snap, word, color) - checks one word's color
//   - AssertEmptySnapshot(t, snap) - checks a reset state
//
// # Timeouts
//
// The timeout.go file provides contexts bounded by the test deadline:
//
//   - ContextWithTestDeadline(t, fallback)
//   - EventContext(t) - for waiting on a single broadcast
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    ctx, cancel := testutil.EventContext(t)
//	    defer cancel()
//	    ev, err := session.Next(ctx)
//	    require.NoError(t, err)
//	    testutil.AssertEventType(t, ev, protocol.TypeInitialize)
//	}
package testutil
