// Command auralis-fpctl is a thin debug driver over the fingerprinting
// core: register tracks, run the worker pool, query similarity, and build
// the K-NN graph from the command line. It is not a product surface, just
// an operator tool for exercising the library directly.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/matiaszanolli/auralis-fpcore/internal/version"
)

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:    "auralis-fpctl",
		Usage:   "Audio fingerprinting and similarity search debug driver",
		Version: version.Version,
		Commands: []*cli.Command{
			addCommand(),
			fingerprintCommand(),
			similarCommand(),
			explainCommand(),
			graphCommand(),
			targetsCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
