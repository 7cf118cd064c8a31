package hub

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/thruflo/wordcloud/internal/logging"
	"github.com/thruflo/wordcloud/internal/metrics"
	"github.com/thruflo/wordcloud/internal/protocol"
	"github.com/thruflo/wordcloud/internal/state"
)

// ErrStopped is returned by hub operations once Run has returned.
var ErrStopped = errors.New("hub stopped")

// Hub serializes every state change and fans updates out to sessions.
type Hub struct {
	store     *state.Store
	logger    *logging.Logger
	metrics   *metrics.Collector
	queueSize int

	cmds    chan func()
	done    chan struct{}
	started atomic.Bool
	count   atomic.Int64

	// Owned by the Run goroutine.
	sessions map[*Session]struct{}
	seq      uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger. The default is logging.Default().
func WithLogger(l *logging.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// WithMetrics sets the metrics collector. A nil collector disables metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(h *Hub) {
		h.metrics = c
	}
}

// WithQueueSize sets the per-session outbound queue size reported by QueueSize.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// New creates a Hub around store. Call Run before using it.
func New(store *state.Store, opts ...Option) *Hub {
	h := &Hub{
		store:     store,
		logger:    logging.Default(),
		queueSize: DefaultQueueSize,
		cmds:      make(chan func()),
		done:      make(chan struct{}),
		sessions:  make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// QueueSize returns the outbound queue size new sessions should use.
func (h *Hub) QueueSize() int {
	return h.queueSize
}

// Store returns the store the hub applies events to.
func (h *Hub) Store() *state.Store {
	return h.store
}

// Run processes hub operations until ctx is cancelled. On return every
// session's outbound queue has been closed. Run may only be called once.
func (h *Hub) Run(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return errors.New("hub already running")
	}
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case fn := <-h.cmds:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds s to the fan-out set and queues the current snapshot to it as
// an initialize event. No broadcast can be ordered between the snapshot and
// the session joining.
func (h *Hub) Register(ctx context.Context, s *Session) error {
	return h.do(ctx, func() {
		if _, ok := h.sessions[s]; ok {
			return
		}
		h.sessions[s] = struct{}{}
		h.count.Add(1)
		h.metrics.SessionOpened()
		h.logger.Info("Client connected", "session", s.id, "remote", s.remote, "sessions", len(h.sessions))

		b, err := h.encode(protocol.TypeInitialize, h.store.Snapshot())
		if err != nil {
			h.logger.Error("Failed to encode snapshot", "error", err)
			return
		}
		h.deliver(s, b)
	})
}

// Unregister removes s from the fan-out set and closes its outbound queue.
// Unregistering an unknown or already removed session is a no-op.
func (h *Hub) Unregister(s *Session) {
	fn := func() {
		if _, ok := h.sessions[s]; ok {
			h.remove(s, false)
		}
	}
	select {
	case h.cmds <- fn:
	case <-h.done:
	}
}

// Dispatch applies one inbound event from s. It returns once the event has
// been applied and any resulting broadcast queued. Events from sessions that
// are not registered are ignored.
func (h *Hub) Dispatch(ctx context.Context, s *Session, ev *protocol.Event) error {
	return h.do(ctx, func() {
		h.handle(s, ev)
	})
}

// Reset clears the store and broadcasts the empty state, as the admin
// endpoint does.
func (h *Hub) Reset(ctx context.Context) error {
	return h.do(ctx, func() {
		h.reset(metrics.SourceAdmin)
	})
}

// Snapshot returns a copy of the store taken between two hub operations.
func (h *Hub) Snapshot(ctx context.Context) (state.Snapshot, error) {
	var snap state.Snapshot
	err := h.do(ctx, func() {
		snap = h.store.Snapshot()
	})
	return snap, err
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	return int(h.count.Load())
}

// do runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.cmds <- wrapped:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-h.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (h *Hub) handle(s *Session, ev *protocol.Event) {
	if _, ok := h.sessions[s]; !ok {
		h.logger.Debug("Ignoring event from unregistered session", "session", s.id, "type", ev.Type)
		return
	}

	switch ev.Type {
	case protocol.TypeAddWord:
		data, err := ev.AddWordData()
		if err != nil {
			h.malformed(s, ev, err)
			return
		}
		key, entry, total, ok := h.store.PutOrIncrement(data.Word, data.Embedding)
		if !ok {
			h.logger.Debug("Ignoring empty word", "session", s.id)
			h.metrics.Dropped(metrics.ReasonEmptyWord)
			return
		}
		h.metrics.Accepted(string(ev.Type))
		h.logger.Info("Word added", "word", key, "count", entry.Count)
		h.broadcast(protocol.TypeWordAdded, protocol.WordAdded{
			Word:             key,
			Count:            entry.Count,
			Embedding:        entry.Embedding,
			Color:            entry.Color,
			TotalSubmissions: total,
		}, nil)

	case protocol.TypeUpdateConnections:
		list, err := ev.ConnectionsData()
		if err != nil {
			h.malformed(s, ev, err)
			return
		}
		h.store.ReplaceConnections(list)
		h.metrics.Accepted(string(ev.Type))
		h.logger.Debug("Connections updated", "session", s.id)
		h.broadcast(protocol.TypeConnectionsUpdated, h.store.Connections(), s)

	case protocol.TypeChangeColor:
		data, err := ev.ChangeColorData()
		if err != nil {
			h.malformed(s, ev, err)
			return
		}
		key, ok := h.store.SetColor(data.Word, data.Color)
		if !ok {
			h.logger.Debug("Ignoring color for unknown word", "session", s.id, "word", key)
			h.metrics.Dropped(metrics.ReasonUnknownWord)
			return
		}
		h.metrics.Accepted(string(ev.Type))
		h.logger.Info("Color changed", "word", key)
		h.broadcast(protocol.TypeColorChanged, protocol.ColorChanged{
			Word:  key,
			Color: data.Color,
		}, nil)

	case protocol.TypeReset:
		h.metrics.Accepted(string(ev.Type))
		h.reset(metrics.SourceClient)

	default:
		h.logger.Debug("Ignoring unknown event type", "session", s.id, "type", ev.Type)
		h.metrics.Dropped(metrics.ReasonUnknownType)
	}
}

func (h *Hub) malformed(s *Session, ev *protocol.Event, err error) {
	h.logger.Warn("Dropping malformed event", "session", s.id, "type", ev.Type, "error", err)
	h.metrics.Dropped(metrics.ReasonMalformed)
}

func (h *Hub) reset(source string) {
	h.store.Reset()
	h.metrics.Reset(source)
	h.logger.Info("Word cloud reset", "source", source)
	h.broadcast(protocol.TypeInitialize, h.store.Snapshot(), nil)
}

// encode builds the next outbound event. Every outbound event takes the next
// sequence number, so sequence order is the order the hub produced them in.
func (h *Hub) encode(msgType protocol.MessageType, data any) ([]byte, error) {
	ev, err := protocol.NewEvent(msgType, data)
	if err != nil {
		return nil, err
	}
	h.seq++
	ev.Seq = h.seq
	return ev.Marshal()
}

// broadcast queues an event to every session except skip, which may be nil.
func (h *Hub) broadcast(msgType protocol.MessageType, data any, skip *Session) {
	b, err := h.encode(msgType, data)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", msgType, "error", err)
		return
	}
	for s := range h.sessions {
		if s == skip {
			continue
		}
		h.deliver(s, b)
	}
}

// deliver never blocks. A session whose queue is full is evicted.
func (h *Hub) deliver(s *Session, b []byte) {
	select {
	case s.send <- b:
	default:
		h.logger.Warn("Evicting slow client", "session", s.id, "remote", s.remote)
		h.remove(s, true)
	}
}

func (h *Hub) remove(s *Session, evicted bool) {
	delete(h.sessions, s)
	close(s.send)
	h.count.Add(-1)
	h.metrics.SessionClosed(evicted)
	if !evicted {
		h.logger.Info("Client disconnected", "session", s.id, "sessions", len(h.sessions))
	}
}

func (h *Hub) closeAll() {
	for s := range h.sessions {
		delete(h.sessions, s)
		close(s.send)
		h.count.Add(-1)
		h.metrics.SessionClosed(false)
	}
}
