package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
)

var errInvalidTrackID = errors.New("argument must be an integer track id")

func similarCommand() *cli.Command {
	return &cli.Command{
		Name:      "similar",
		Usage:     "Find the n tracks most similar to a given track",
		ArgsUsage: "<track id>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:    "n",
				Aliases: []string{"count"},
				Usage:   "Number of neighbors to return",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "no-prefilter",
				Usage: "Search every fingerprint instead of pre-filtering candidates",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			trackID, err := strconv.ParseInt(cmd.Args().Get(0), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", errInvalidTrackID, cmd.Args().Get(0))
			}

			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			if err := engine.FitSimilarity(ctx, 1); err != nil {
				return fmt.Errorf("fitting normalizer: %w", err)
			}

			results, err := engine.Similarity.FindSimilar(ctx, trackID, cmd.Int("n"), !cmd.Bool("no-prefilter"))
			if err != nil {
				return fmt.Errorf("finding similar tracks: %w", err)
			}

			for _, r := range results {
				fmt.Printf("%d\tdistance=%.4f\tscore=%.4f\n", r.TrackID, r.Distance, r.SimilarityScore)
			}

			return nil
		},
	}
}
