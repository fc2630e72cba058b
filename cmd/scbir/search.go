package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/scbir/internal/domain/session"
)

func NewSearchCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "search <image>",
		Short: "Search the backend for prints similar to an image",
		Long: `Select the image as the query, run one search and print the ranked results
in the result grid.`,
		Args: cobra.ExactArgs(1),
		RunE: makeSearchRunner(load),
	}
}

func makeSearchRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		if err := runSearch(cmd, a, args[0]); err != nil {
			return err
		}

		if jsonOutput(cmd) {
			if err := sessionJSON(cmd.OutOrStdout(), a); err != nil {
				return err
			}
		} else {
			printSession(cmd.OutOrStdout(), a.bench.Snapshot(), a.bench.Grid(), a.messages())
		}

		if s := a.bench.Snapshot(); s.Status == session.Failed {
			return fmt.Errorf("search failed: %w", s.Err)
		}
		return nil
	}
}

// runSearch probes the backend, selects the image and waits for the search to settle.
func runSearch(cmd *cobra.Command, a *app, path string) error {
	img, err := loadImage(path)
	if err != nil {
		return err
	}

	a.probe(cmd.Context())
	sel := a.bench.SelectFile(cmd.Context(), img)

	select {
	case <-sel.Done:
		return nil
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
}
