package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thruflo/wordcloud/internal/client"
	"github.com/thruflo/wordcloud/internal/protocol"
)

var (
	tailServer string
	tailJSON   bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Watch word cloud events as they happen",
	Long: `Connects to a running server as a participant and prints every event
it broadcasts, starting with the current state. This is a read-only view;
nothing is submitted.

With --json, each event envelope is printed as one JSON line.

Example:
  wordcloud tail
  wordcloud tail --server http://wordcloud.local:3000
  wordcloud tail --json | jq .type`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&tailServer, "server", "s", defaultServerURL, "word cloud server URL")
	tailCmd.Flags().BoolVar(&tailJSON, "json", false, "print raw event envelopes")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := client.New(tailServer).Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", tailServer, err)
	}
	defer session.Close()

	return tailEvents(ctx, session, cmd.OutOrStdout(), tailJSON)
}

// tailEvents prints events until ctx ends or the server closes the session.
func tailEvents(ctx context.Context, session *client.Session, w io.Writer, raw bool) error {
	for {
		ev, err := session.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, client.ErrClosed) {
				return nil
			}
			return err
		}

		if raw {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			continue
		}
		fmt.Fprintln(w, formatEvent(ev))
	}
}

// formatEvent renders one event as a single human readable line.
func formatEvent(ev *protocol.Event) string {
	prefix := fmt.Sprintf("[%s] #%d", ev.Timestamp.Local().Format("15:04:05"), ev.Seq)

	switch ev.Type {
	case protocol.TypeInitialize:
		data, err := ev.InitializeData()
		if err != nil {
			break
		}
		words := make([]string, 0, len(data.Words))
		for _, w := range data.Words {
			words = append(words, fmt.Sprintf("%s(%d)", w.Text, w.Count))
		}
		summary := "empty"
		if len(words) > 0 {
			summary = strings.Join(words, ", ")
		}
		return fmt.Sprintf("%s initialize: %d words, %d submissions: %s",
			prefix, len(data.Words), data.TotalSubmissions, summary)

	case protocol.TypeWordAdded:
		data, err := ev.WordAddedData()
		if err != nil {
			break
		}
		return fmt.Sprintf("%s word added: %s (count: %d, total: %d)",
			prefix, data.Word, data.Count, data.TotalSubmissions)

	case protocol.TypeColorChanged:
		data, err := ev.ColorChangedData()
		if err != nil {
			break
		}
		color := "none"
		if data.Color != nil {
			color = *data.Color
		}
		return fmt.Sprintf("%s color changed: %s -> %s", prefix, data.Word, color)

	case protocol.TypeConnectionsUpdated:
		var list []json.RawMessage
		if err := json.Unmarshal(ev.Data, &list); err != nil {
			return fmt.Sprintf("%s connections updated", prefix)
		}
		return fmt.Sprintf("%s connections updated: %d links", prefix, len(list))
	}

	return fmt.Sprintf("%s %s %s", prefix, ev.Type, string(ev.Data))
}
