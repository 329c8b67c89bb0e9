package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dileep-u-k/pmo-assistant/internal/agent"
	"github.com/dileep-u-k/pmo-assistant/internal/api"
	"github.com/dileep-u-k/pmo-assistant/internal/app"
)

func chatCmd(c *cli) *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the PMO agent",
		Long:  "Send one message to the PMO agent and stream its tool calls and answer. Pass --thread to continue a conversation.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			registry, err := app.BuildRegistry(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			assistant, err := app.BuildAssistant(ctx, cfg, registry, logger)
			if err != nil {
				return explain(err)
			}
			defer assistant.Close()

			message := api.ChatMessage{Role: "user", Content: strings.Join(args, " ")}
			events, err := assistant.Agent.Stream(ctx, threadID, []api.ChatMessage{message})
			if err != nil {
				return err
			}
			return renderEvents(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread id to continue (default: a new thread)")
	return cmd
}

// renderEvents prints an agent turn. It returns an error when the turn ended
// with one.
func renderEvents(w io.Writer, events <-chan agent.Event) error {
	var failed error
	for ev := range events {
		switch ev.Type {
		case agent.EventToolCall:
			fmt.Fprintf(w, "%s %s %s\n", color.YellowString("→"), ev.Tool, color.HiBlackString(string(ev.Args)))
		case agent.EventToolResult:
			if ev.Error != "" {
				fmt.Fprintf(w, "%s %s %s\n", color.RedString("✗"), ev.Tool, color.RedString(ev.Error))
			} else {
				fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), ev.Tool)
			}
		case agent.EventText:
			fmt.Fprintln(w, ev.Text)
		case agent.EventError:
			failed = fmt.Errorf("agent: %s", ev.Error)
		case agent.EventFinish:
			tokens := 0
			if ev.Usage != nil {
				tokens = ev.Usage.TotalTokens
			}
			fmt.Fprintln(w, color.HiBlackString("thread %s · %d tokens", ev.ThreadID, tokens))
		}
	}
	return failed
}
