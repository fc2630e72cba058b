package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/kailas-cloud/scbir/internal/version"
)

func main() {
	ctx := context.Background()

	apps := &lazyApp{build: loadApp}
	rootCmd := NewRootCmd(version.String(), apps.get)
	err := fang.Execute(ctx, rootCmd)
	apps.close()
	if err != nil {
		os.Exit(1)
	}
}
