package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dileep-u-k/pmo-assistant/internal/app"
	"github.com/dileep-u-k/pmo-assistant/internal/completion"
	"github.com/dileep-u-k/pmo-assistant/internal/tools"
)

func toolsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and run the registered tools",
	}

	// pmoctl tools list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := c.registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.CyanString("Tools (%d)", registry.Count()))
			for _, def := range registry.Definitions() {
				fmt.Fprintf(out, "  %-24s %s\n", color.GreenString(def.ID), firstLine(def.Description))
			}
			return nil
		},
	}

	// pmoctl tools schema <id>
	var outputOnly bool
	schemaCmd := &cobra.Command{
		Use:   "schema <id>",
		Short: "Print a tool's input (or output) JSON schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := c.registry()
			if err != nil {
				return err
			}
			def, ok := registry.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", tools.ErrToolNotFound, args[0])
			}
			var s any = def.InputSchema
			if outputOnly {
				if def.OutputSchema == nil {
					return fmt.Errorf("%s passes its upstream reply through and has no output schema", def.ID)
				}
				s = def.OutputSchema
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
	schemaCmd.Flags().BoolVar(&outputOnly, "output", false, "Print the output schema instead")

	// pmoctl tools run <id> --input '{...}'
	var input, inputFile string
	runCmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run one tool with JSON arguments and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := c.registry()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), input, inputFile)
			if err != nil {
				return err
			}
			result, err := registry.Execute(context.Background(), args[0], raw)
			if err != nil {
				return explain(err)
			}
			if text, ok := result.(string); ok {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	runCmd.Flags().StringVarP(&input, "input", "i", "", "Tool arguments as a JSON object")
	runCmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "Read tool arguments from a file (- for stdin)")

	cmd.AddCommand(listCmd, schemaCmd, runCmd)
	return cmd
}

func (c *cli) registry() (*tools.Registry, error) {
	cfg, logger, err := c.load()
	if err != nil {
		return nil, err
	}
	return app.BuildRegistry(cfg, logger)
}

func readInput(stdin io.Reader, input, inputFile string) (json.RawMessage, error) {
	switch {
	case input != "" && inputFile != "":
		return nil, errors.New("use either --input or --input-file, not both")
	case input != "":
		return json.RawMessage(input), nil
	case inputFile == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	case inputFile != "":
		b, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		return b, nil
	default:
		return json.RawMessage("{}"), nil
	}
}

// explain adds a hint for the errors a user can fix from the shell.
func explain(err error) error {
	var cfgErr *completion.ConfigurationError
	if errors.As(err, &cfgErr) {
		return fmt.Errorf("%w (export %s or add it to .env)", err, cfgErr.Variable)
	}
	var timeoutErr *completion.TimeoutError
	if errors.As(err, &timeoutErr) {
		return fmt.Errorf("%w (raise TOOLS_TIMEOUT to wait longer)", err)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
