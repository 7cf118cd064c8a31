package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withResetServer(t *testing.T, url string) {
	t.Helper()
	prev := resetServer
	resetServer = url
	t.Cleanup(func() { resetServer = prev })
}

func TestResetCommand_Metadata(t *testing.T) {
	assert.Equal(t, "reset", resetCmd.Use)
	assert.Equal(t, "Clear the word cloud on a running server", resetCmd.Short)
	assert.Error(t, resetCmd.Args(resetCmd, []string{"extra"}))

	server := resetCmd.Flags().Lookup("server")
	require.NotNil(t, server)
	assert.Equal(t, defaultServerURL, server.DefValue)

	timeout := resetCmd.Flags().Lookup("timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, "10s", timeout.DefValue)
}

func TestRunReset(t *testing.T) {
	var gotMethod, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Word cloud reset successfully"}`))
	}))
	defer ts.Close()
	withResetServer(t, ts.URL)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, runReset(cmd, nil))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/admin/reset", gotPath)
	assert.Equal(t, "Word cloud reset successfully\n", out.String())
}

func TestRunReset_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many reset attempts", http.StatusTooManyRequests)
	}))
	defer ts.Close()
	withResetServer(t, ts.URL)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runReset(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reset word cloud")
}
