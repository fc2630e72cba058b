package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/scbir/internal/domain/session"
	chiTransport "github.com/kailas-cloud/scbir/internal/transport/chi"
	"github.com/kailas-cloud/scbir/internal/usecase/workbench"
)

const compareHelp = `commands: next (n, >), prev (p, <), + [pane], - [pane], scroll [pane] <dy>,
drag [pane] <x1> <y1> <x2> <y2>, reset, open <n>, close, quit (q)
pane is "query" or "result" (default result)`

func NewCompareCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <image>",
		Short: "Compare an image with its matches side by side",
		Long: `Search for the image, open the comparison viewer on one result and read
viewer commands from stdin, one per line.

` + compareHelp,
		Args: cobra.ExactArgs(1),
		RunE: makeCompareRunner(load),
	}

	cmd.Flags().Int("index", 0, "Result slot to open first")
	return cmd
}

func makeCompareRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetInt("index")

		a, err := load(cmd)
		if err != nil {
			return err
		}
		if err := runSearch(cmd, a, args[0]); err != nil {
			return err
		}
		if s := a.bench.Snapshot(); s.Status == session.Failed {
			return fmt.Errorf("search failed: %w", s.Err)
		}

		out := cmd.OutOrStdout()
		c, err := a.bench.Open(index)
		if err != nil {
			return fmt.Errorf("open result %d: %w", index, err)
		}
		if err := printCompareState(cmd, out, c); err != nil {
			return err
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			c, done, err := compareStep(a.bench, line)
			if done {
				return nil
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				continue
			}
			if err := printCompareState(cmd, out, c); err != nil {
				return err
			}
			if !c.State.Open {
				return nil
			}
		}
		return scanner.Err()
	}
}

// compareStep runs one REPL line. done is set when the user asks to leave.
func compareStep(bench *workbench.Workbench, line string) (c workbench.Comparison, done bool, err error) {
	fields := strings.Fields(strings.ToLower(line))
	switch fields[0] {
	case "quit", "q", "exit":
		return workbench.Comparison{}, true, nil
	case "help", "?":
		return workbench.Comparison{}, false, errors.New(compareHelp)
	case "open":
		if len(fields) != 2 {
			return workbench.Comparison{}, false, errors.New("usage: open <n>")
		}
		n, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			return workbench.Comparison{}, false, fmt.Errorf("bad index %q", fields[1])
		}
		c, err = bench.Open(n)
		return c, false, err
	}

	command, err := workbench.ParseCommand(line)
	if err != nil {
		return workbench.Comparison{}, false, err
	}
	c, err = bench.Apply(command)
	return c, false, err
}

func printCompareState(cmd *cobra.Command, w io.Writer, c workbench.Comparison) error {
	if jsonOutput(cmd) {
		return printJSON(w, chiTransport.NewViewerResponse(c))
	}
	printComparison(w, c)
	return nil
}
