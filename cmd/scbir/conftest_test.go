package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/config"
)

// testLoader composes the app over the offline backend with no artificial latency.
func testLoader(t *testing.T, mutate func(*config.Config)) appLoader {
	t.Helper()
	cfg := config.Config{}
	cfg.Backend.Mock = true
	cfg.ApplyDefaults()
	if mutate != nil {
		mutate(&cfg)
	}

	var a *app
	t.Cleanup(func() {
		if a != nil {
			a.Close()
		}
	})
	return func(cmd *cobra.Command) (*app, error) {
		if a != nil {
			return a, nil
		}
		built, err := buildApp(cmd.Context(), cfg, zap.NewNop())
		if err != nil {
			return nil, err
		}
		a = built
		return a, nil
	}
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, load appLoader, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test", load)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writePrint writes a small grayscale PNG and returns its path.
func writePrint(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := 0; i < 16; i++ {
		img.SetGray(i, i, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}
