package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/domain/session"
	chiTransport "github.com/kailas-cloud/scbir/internal/transport/chi"
	"github.com/kailas-cloud/scbir/internal/usecase/grid"
	"github.com/kailas-cloud/scbir/internal/usecase/upload"
)

var watchExtensions = map[string]bool{
	".tif": true, ".tiff": true, ".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
}

func NewWatchCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Search every fingerprint image dropped into a directory",
		Long: `Watch a directory and select each new or rewritten image as the query.
A newer file supersedes a search still in flight; only the latest results are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: makeWatchRunner(load),
	}

	cmd.Flags().Duration("debounce", 300*time.Millisecond, "Wait this long after the last write before searching")
	return cmd
}

func makeWatchRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		debounce, _ := cmd.Flags().GetDuration("debounce")

		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("not a directory: %s", dir)
		}

		a, err := load(cmd)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report := a.probe(ctx)
		if !report.Ready() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", a.bench.Snapshot().ReadinessMessage)
		}

		// Subscribers only print; they must not call back into the controller.
		out := cmd.OutOrStdout()
		unsubscribe := a.bench.Controller().Subscribe(func(s upload.Snapshot) {
			switch s.Status {
			case session.Succeeded, session.Failed:
				g := grid.Project(s.Status, s.Results, a.bench.Capacity())
				fmt.Fprintln(out, "---")
				if jsonOutput(cmd) {
					_ = printJSON(out, chiTransport.NewSessionResponse(s, g, a.messages()))
					return
				}
				printSession(out, s, g, a.messages())
			}
		})
		defer unsubscribe()

		fmt.Fprintf(out, "Watching %s for images...\n", dir)

		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		var pending string

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !shouldHandle(event) {
					continue
				}
				pending = event.Name
				timer.Reset(debounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			case <-timer.C:
				path := pending
				pending = ""
				img, err := loadImage(path)
				if err != nil {
					a.logger.Warn("Skipping file", zap.String("path", path), zap.Error(err))
					continue
				}
				fmt.Fprintf(out, "Searching %s\n", filepath.Base(path))
				a.bench.SelectFile(ctx, img)
			}
		}
	}
}

func shouldHandle(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return watchExtensions[strings.ToLower(filepath.Ext(base))]
}
