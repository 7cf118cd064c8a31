package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wordcloud/internal/config"
	"github.com/thruflo/wordcloud/internal/hub"
	"github.com/thruflo/wordcloud/internal/metrics"
	"github.com/thruflo/wordcloud/internal/protocol"
	"github.com/thruflo/wordcloud/internal/state"
	"github.com/thruflo/wordcloud/internal/testutil"
)

type testEnv struct {
	server  *Server
	hub     *hub.Hub
	metrics *metrics.Collector
	http    *httptest.Server
}

// createTestServer starts a hub and serves the router with httptest. The
// upstream defaults to an echo server standing in for the embedding service.
func createTestServer(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"method": r.Method, "path": r.URL.Path})
	}))
	t.Cleanup(upstream.Close)

	m := metrics.NewCollector("wordcloud")
	h := hub.New(state.NewStore(), hub.WithMetrics(m))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})

	cfg := &Config{
		Port:        0,
		UpstreamURL: upstream.URL,
		ProxyPrefix: "/spacy",
		Hub:         h,
		Metrics:     m,
		Assets: fstest.MapFS{
			"index.html": &fstest.MapFile{Data: []byte("<html>word cloud</html>")},
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	server, err := NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: server, hub: h, metrics: m, http: ts}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// join dials and consumes the initialize event.
func (e *testEnv) join(t *testing.T) (*websocket.Conn, *protocol.Initialize) {
	t.Helper()
	conn := e.dial(t)
	ev := readEvent(t, conn)
	require.Equal(t, protocol.TypeInitialize, ev.Type)
	snap, err := ev.InitializeData()
	require.NoError(t, err)
	return conn, snap
}

func readEvent(t *testing.T, conn *websocket.Conn) *protocol.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := protocol.UnmarshalEvent(data)
	require.NoError(t, err)
	return ev
}

// expectSilence leaves conn unusable for further reads.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
}

func sendEvent(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, data any) {
	t.Helper()
	ev := protocol.MustNewEvent(msgType, data)
	b, err := ev.Marshal()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func TestNewServer(t *testing.T) {
	h := hub.New(state.NewStore())

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: "config is required",
		},
		{
			name:    "missing hub",
			cfg:     &Config{UpstreamURL: "http://localhost:5000", ProxyPrefix: "/spacy"},
			wantErr: "hub is required",
		},
		{
			name:    "bad upstream",
			cfg:     &Config{Hub: h, UpstreamURL: "localhost", ProxyPrefix: "/spacy"},
			wantErr: "failed to create upstream proxy",
		},
		{
			name: "valid",
			cfg:  &Config{Hub: h, Port: 3000, UpstreamURL: "http://localhost:5000", ProxyPrefix: "/spacy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Port, server.Port())
			assert.Empty(t, server.ListenAddr())
		})
	}
}

func TestNewServerFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 4000

	server, err := NewServerFromConfig(&cfg, hub.New(state.NewStore()), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4000, server.Port())

	_, err = NewServerFromConfig(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestWebSocket_InitializeOnConnect(t *testing.T) {
	env := createTestServer(t)

	_, snap := env.join(t)
	testutil.AssertEmptySnapshot(t, snap)
}

func TestWebSocket_BootstrapAfterActivity(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)

	for _, sub := range testutil.SampleSubmissions() {
		sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: sub.Word, Embedding: sub.Embedding})
		testutil.AssertEventType(t, readEvent(t, a), protocol.TypeWordAdded)
	}
	sendEvent(t, a, protocol.TypeChangeColor, protocol.ChangeColor{Word: "dog", Color: testutil.StrPtr("#00ff00")})
	readEvent(t, a)

	want, err := env.hub.Snapshot(context.Background())
	require.NoError(t, err)

	_, snap := env.join(t)
	assert.Equal(t, want.Words, snap.Words)
	assert.Equal(t, testutil.SampleSnapshot().TotalSubmissions, snap.TotalSubmissions)
	testutil.AssertWordCounts(t, snap, map[string]int{"cat": 2, "dog": 1, "fish": 1})
	testutil.AssertWordColor(t, snap, "dog", testutil.StrPtr("#00ff00"))
	testutil.AssertWordColor(t, snap, "cat", nil)
}

func TestWebSocket_BroadcastScope(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)
	b, _ := env.join(t)

	t.Run("wordAdded reaches sender and peers", func(t *testing.T) {
		sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: " Tree ", Embedding: state.Embedding{0.25, 0.5}})
		for _, conn := range []*websocket.Conn{a, b} {
			ev := readEvent(t, conn)
			require.Equal(t, protocol.TypeWordAdded, ev.Type)
			data, err := ev.WordAddedData()
			require.NoError(t, err)
			assert.Equal(t, "tree", data.Word)
			assert.Equal(t, 1, data.Count)
			assert.Nil(t, data.Color)
		}
	})

	t.Run("connectionsUpdated skips sender", func(t *testing.T) {
		sendEvent(t, a, protocol.TypeUpdateConnections, json.RawMessage(`[["tree","leaf"]]`))
		ev := readEvent(t, b)
		require.Equal(t, protocol.TypeConnectionsUpdated, ev.Type)
		assert.JSONEq(t, `[["tree","leaf"]]`, string(ev.Data))
		expectSilence(t, a)
	})
}

func TestWebSocket_ColorChangedEchoes(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)
	b, _ := env.join(t)

	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "sky"})
	readEvent(t, a)
	readEvent(t, b)

	color := "blue"
	sendEvent(t, b, protocol.TypeChangeColor, protocol.ChangeColor{Word: "sky", Color: &color})
	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		require.Equal(t, protocol.TypeColorChanged, ev.Type)
		data, err := ev.ColorChangedData()
		require.NoError(t, err)
		require.NotNil(t, data.Color)
		assert.Equal(t, "blue", *data.Color)
	}
}

func TestWebSocket_InvalidInputKeepsConnection(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"addWord","data":{"word":42}}`)))
	require.NoError(t, a.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	sendEvent(t, a, protocol.TypeChangeColor, protocol.ChangeColor{Word: "unknown"})
	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "   "})

	// The session still works after every bad frame.
	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "ok"})
	ev := readEvent(t, a)
	require.Equal(t, protocol.TypeWordAdded, ev.Type)
	data, err := ev.WordAddedData()
	require.NoError(t, err)
	assert.Equal(t, "ok", data.Word)
	assert.Equal(t, 1, data.TotalSubmissions)
}

func TestWebSocket_ClientReset(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)
	b, _ := env.join(t)

	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "gone"})
	readEvent(t, a)
	readEvent(t, b)

	sendEvent(t, b, protocol.TypeReset, nil)
	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		testutil.AssertEventType(t, ev, protocol.TypeInitialize)
		snap, err := ev.InitializeData()
		require.NoError(t, err)
		testutil.AssertEmptySnapshot(t, snap)
	}
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)
	assert.Equal(t, 1, env.hub.SessionCount())

	require.NoError(t, a.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	a.Close()

	assert.Eventually(t, func() bool {
		return env.hub.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleAdminReset(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)

	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "cat"})
	readEvent(t, a)

	resp, err := http.Post(env.http.URL+"/admin/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body ResetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "Word cloud reset successfully", body.Message)

	ev := readEvent(t, a)
	require.Equal(t, protocol.TypeInitialize, ev.Type)
	assert.Equal(t, 0, env.hub.Store().Len())
}

func TestHandleAdminReset_RateLimited(t *testing.T) {
	env := createTestServer(t, func(c *Config) {
		c.ResetLimit = RateLimitConfig{MaxAttempts: 2, Window: time.Minute}
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Post(env.http.URL+"/admin/reset", "application/json", nil)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			assert.NotEmpty(t, resp.Header.Get("Retry-After"))
		}
		resp.Body.Close()
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestHandleHealth(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)
	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "one"})
	readEvent(t, a)
	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "one"})
	readEvent(t, a)

	resp, err := http.Get(env.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, HealthResponse{Status: "healthy", Sessions: 1, Words: 1, TotalSubmissions: 2}, body)
}

func TestMetricsEndpoint(t *testing.T) {
	env := createTestServer(t)
	a, _ := env.join(t)
	sendEvent(t, a, protocol.TypeAddWord, protocol.AddWord{Word: "m"})
	readEvent(t, a)

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `wordcloud_events_total{type="addWord"} 1`)
	assert.Contains(t, string(body), "wordcloud_sessions_active 1")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	env := createTestServer(t, func(c *Config) { c.Metrics = nil })

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxyMount(t *testing.T) {
	env := createTestServer(t)

	tests := []struct {
		method   string
		path     string
		wantPath string
	}{
		{http.MethodPost, "/spacy/embedding", "/embedding"},
		{http.MethodGet, "/spacy/health", "/health"},
		{http.MethodGet, "/spacy", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.http.URL+tt.path, strings.NewReader(`{}`))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var got map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.method, got["method"])
			assert.Equal(t, tt.wantPath, got["path"])
		})
	}
}

func TestStaticAssets(t *testing.T) {
	env := createTestServer(t)

	resp, err := http.Get(env.http.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "word cloud")

	resp2, err := http.Get(env.http.URL + "/missing.js")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := createTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+"/admin/reset", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServerStartStop(t *testing.T) {
	h := hub.New(state.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Run(ctx) }()

	server, err := NewServer(&Config{
		Host:        "127.0.0.1",
		Port:        0,
		UpstreamURL: "http://127.0.0.1:1",
		ProxyPrefix: "/spacy",
		Hub:         h,
		Assets:      fstest.MapFS{},
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	require.Eventually(t, func() bool { return server.ListenAddr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + server.ListenAddr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Error(t, server.Start(ctx), "second start should fail")

	require.NoError(t, server.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
