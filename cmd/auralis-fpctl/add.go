package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

var errInvalidArgCount = errors.New("expected exactly one argument: path to an audio file")

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Register an audio file as a track awaiting fingerprinting",
		ArgsUsage: "<file path>",
		Flags:     []cli.Flag{dbFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			trackID, err := engine.Tracks.Add(ctx, cmd.Args().Get(0))
			if err != nil {
				return fmt.Errorf("adding track: %w", err)
			}

			fmt.Printf("track %d registered\n", trackID)

			return nil
		},
	}
}
