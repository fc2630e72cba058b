package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

func NewPreprocessCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess <image>",
		Short: "Show the backend's preprocessed version of an image",
		Args:  cobra.ExactArgs(1),
		RunE:  makePreprocessRunner(load),
	}

	cmd.Flags().StringP("output", "o", "", "Write the processed PNG to this path")
	return cmd
}

func makePreprocessRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := load(cmd)
		if err != nil {
			return err
		}
		img, err := loadImage(args[0])
		if err != nil {
			return err
		}

		p, err := a.backend.Preprocess(cmd.Context(), img)
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}

		if output != "" {
			if err := os.WriteFile(filepath.Clean(output), p.Image, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
		}

		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"original_size":  p.OriginalSize,
				"processed_size": p.ProcessedSize,
				"bytes":          len(p.Image),
				"output":         output,
			})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Original:  %s\n", p.OriginalSize)
		fmt.Fprintf(w, "Processed: %s (%d bytes)\n", p.ProcessedSize, len(p.Image))
		if output != "" {
			fmt.Fprintf(w, "Saved:     %s\n", output)
		}
		return nil
	}
}

func NewFeaturesCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features <image>",
		Short: "Show the descriptor vector the backend extracts from an image",
		Args:  cobra.ExactArgs(1),
		RunE:  makeFeaturesRunner(load),
	}

	cmd.Flags().Bool("full", false, "Print the whole vector instead of a preview")
	return cmd
}

const featurePreview = 8

func makeFeaturesRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		a, err := load(cmd)
		if err != nil {
			return err
		}
		img, err := loadImage(args[0])
		if err != nil {
			return err
		}

		f, err := a.backend.Features(cmd.Context(), img)
		if err != nil {
			return fmt.Errorf("extract features: %w", err)
		}

		vec := f.Vector
		if !full && len(vec) > featurePreview {
			vec = vec[:featurePreview]
		}

		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"dimension":   f.Dimension,
				"descriptors": f.Descriptors,
				"vector":      vec,
				"truncated":   len(vec) < len(f.Vector),
			})
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Dimension: %d\n", f.Dimension)
		names := make([]string, 0, len(f.Descriptors))
		for k := range f.Descriptors {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "  %-6s %d\n", n, f.Descriptors[n])
		}
		fmt.Fprintf(w, "Vector: %v", vec)
		if len(vec) < len(f.Vector) {
			fmt.Fprintf(w, " ... (%d more)", len(f.Vector)-len(vec))
		}
		fmt.Fprintln(w)
		return nil
	}
}
