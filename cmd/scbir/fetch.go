package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func NewFetchCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <file-id>",
		Short: "Download a database image by file identifier",
		Args:  cobra.ExactArgs(1),
		RunE:  makeFetchRunner(load),
	}

	cmd.Flags().StringP("output", "o", "", "Write to this path (default: stdout)")
	return cmd
}

func makeFetchRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := load(cmd)
		if err != nil {
			return err
		}

		data, contentType, err := a.images.Image(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetch %s: %w", args[0], err)
		}

		if output == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(filepath.Clean(output), data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s, %d bytes)\n", output, contentType, len(data))
		return nil
	}
}
