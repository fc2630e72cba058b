package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/session"
	chiTransport "github.com/kailas-cloud/scbir/internal/transport/chi"
	"github.com/kailas-cloud/scbir/internal/usecase/grid"
	"github.com/kailas-cloud/scbir/internal/usecase/upload"
	"github.com/kailas-cloud/scbir/internal/usecase/workbench"
)

func jsonOutput(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadImage reads a query image from disk. Type detection happens in blob.New.
func loadImage(path string) (blob.Blob, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return blob.Blob{}, fmt.Errorf("read image: %w", err)
	}
	return blob.New(filepath.Base(path), data, "")
}

func printSession(w io.Writer, s upload.Snapshot, g grid.View, msgs upload.Messages) {
	if s.HasFile() {
		fmt.Fprintf(w, "File:   %s (%s, %d bytes)\n", s.Image.Name(), s.Image.ContentType(), s.Image.Size())
	}
	fmt.Fprintf(w, "Status: %s\n", s.Status)
	if s.ReadinessMessage != "" {
		fmt.Fprintf(w, "Backend: %s\n", s.ReadinessMessage)
	}

	switch s.Status {
	case session.Failed:
		fmt.Fprintf(w, "Error:  %s\n", msgs.ForError(s.Err))
		return
	case session.Succeeded:
		if s.Results.Empty() {
			fmt.Fprintln(w, msgs.Get(upload.MsgNoResults))
			return
		}
		fmt.Fprintln(w, msgs.ResultCount(s.Results.Len()))
	}

	for _, slot := range g.Slots() {
		switch slot.State {
		case grid.Filled:
			r := slot.Result
			line := fmt.Sprintf("  [%d] #%-3d %-40s %6.2f%%", slot.Index, r.Rank(), r.FileID(), r.Similarity()*100)
			if d, ok := r.Distance(); ok {
				line += fmt.Sprintf("  dist %.4f", d)
			}
			fmt.Fprintln(w, line)
		default:
			fmt.Fprintf(w, "  [%d] %s\n", slot.Index, slot.State)
		}
	}
}

func printComparison(w io.Writer, c workbench.Comparison) {
	st := c.State
	if !st.Open {
		fmt.Fprintln(w, "Viewer closed")
		return
	}
	nav := make([]string, 0, 2)
	if st.CanPrevious {
		nav = append(nav, "prev")
	}
	if st.CanNext {
		nav = append(nav, "next")
	}
	fmt.Fprintf(w, "Match %d/%d: %s (%.2f%%)\n", st.Index+1, st.Total, c.Result.FileID(), c.Result.Similarity()*100)
	fmt.Fprintf(w, "  query  zoom %.2f offset (%.0f, %.0f)\n", st.Query.Zoom, st.Query.Offset.X, st.Query.Offset.Y)
	fmt.Fprintf(w, "  match  zoom %.2f offset (%.0f, %.0f)\n", st.Result.Zoom, st.Result.Offset.X, st.Result.Offset.Y)
	if len(nav) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(nav, " | "))
	}
}

func sessionJSON(w io.Writer, a *app) error {
	return printJSON(w, chiTransport.NewSessionResponse(a.bench.Snapshot(), a.bench.Grid(), a.messages()))
}
