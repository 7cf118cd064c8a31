package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEmbedder(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /embedding", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No text provided"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":       req.Text,
			"embedding":  []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
			"has_vector": true,
		})
	})
	mux.HandleFunc("POST /batch_similarity", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"target": "cat",
			"similarities": []map[string]any{
				{"word": "dog", "similarity": 0.8},
				{"word": "car", "similarity": 0.2},
			},
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","model":"en_core_web_md","vector_size":300}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// withEmbedFlags sets the embed command's flag variables for one test.
func withEmbedFlags(t *testing.T, upstream string, health, raw bool, compare []string) {
	t.Helper()
	prevUp, prevHealth, prevJSON, prevCompare := embedUpstream, embedHealth, embedJSON, embedCompare
	embedUpstream, embedHealth, embedJSON, embedCompare = upstream, health, raw, compare
	t.Cleanup(func() {
		embedUpstream, embedHealth, embedJSON, embedCompare = prevUp, prevHealth, prevJSON, prevCompare
	})
}

func runEmbedCapture(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	err := runEmbed(cmd, args)
	return out.String(), err
}

func TestEmbedCommand_Args(t *testing.T) {
	withEmbedFlags(t, "", false, false, nil)
	assert.Error(t, embedCmd.Args(embedCmd, nil))
	assert.NoError(t, embedCmd.Args(embedCmd, []string{"cat"}))
	assert.Error(t, embedCmd.Args(embedCmd, []string{"cat", "dog"}))

	withEmbedFlags(t, "", true, false, nil)
	assert.NoError(t, embedCmd.Args(embedCmd, nil))
	assert.Error(t, embedCmd.Args(embedCmd, []string{"cat"}))
}

func TestEmbedCommand_Flags(t *testing.T) {
	upstream := embedCmd.Flags().Lookup("upstream")
	require.NotNil(t, upstream)
	assert.Equal(t, "http://localhost:5000", upstream.DefValue)
	assert.Equal(t, "u", upstream.Shorthand)

	for _, name := range []string{"health", "compare", "json", "timeout"} {
		assert.NotNil(t, embedCmd.Flags().Lookup(name), name)
	}
}

func TestRunEmbed(t *testing.T) {
	ts := fakeEmbedder(t)
	withEmbedFlags(t, ts.URL, false, false, nil)

	out, err := runEmbedCapture(t, "cat")
	require.NoError(t, err)
	assert.Contains(t, out, "Text:      cat")
	assert.Contains(t, out, "HasVector: true")
	assert.Contains(t, out, "Dims:      7")
	assert.Contains(t, out, "[0.1000 0.2000 0.3000 0.4000 0.5000 ...]")
}

func TestRunEmbed_JSON(t *testing.T) {
	ts := fakeEmbedder(t)
	withEmbedFlags(t, ts.URL, false, true, nil)

	out, err := runEmbedCapture(t, "cat")
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "cat", resp["text"])
	assert.Len(t, resp["embedding"], 7)
}

func TestRunEmbed_Compare(t *testing.T) {
	ts := fakeEmbedder(t)
	withEmbedFlags(t, ts.URL, false, false, []string{"dog", "car"})

	out, err := runEmbedCapture(t, "cat")
	require.NoError(t, err)
	assert.Contains(t, out, `Similarity to "cat"`)
	assert.Regexp(t, `dog\s+0\.800`, out)
	assert.Regexp(t, `car\s+0\.200`, out)
}

func TestRunEmbed_Health(t *testing.T) {
	ts := fakeEmbedder(t)
	withEmbedFlags(t, ts.URL, true, false, nil)

	out, err := runEmbedCapture(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Model:   en_core_web_md")
	assert.Contains(t, out, "300 dimensions")
}

func TestRunEmbed_UpstreamError(t *testing.T) {
	ts := fakeEmbedder(t)
	withEmbedFlags(t, ts.URL, false, false, nil)

	_, err := runEmbedCapture(t, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding failed")
	assert.Contains(t, err.Error(), "No text provided")
}

func TestPreviewVector(t *testing.T) {
	assert.Equal(t, "[]", previewVector(nil, 5))
	assert.Equal(t, "[1.0000 2.0000]", previewVector([]float64{1, 2}, 5))
	assert.Equal(t, "[1.0000 ...]", previewVector([]float64{1, 2}, 1))
}
