package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
)

var errInvalidTrackPair = errors.New("expected exactly two integer track ids")

func explainCommand() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Break a pairwise similarity down by dimension",
		ArgsUsage: "<track id 1> <track id 2>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:  "top",
				Usage: "How many dimensions to show",
				Value: 5,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("%w: got %d", errInvalidTrackPair, cmd.NArg())
			}

			id1, err1 := strconv.ParseInt(cmd.Args().Get(0), 10, 64)
			id2, err2 := strconv.ParseInt(cmd.Args().Get(1), 10, 64)

			if err1 != nil || err2 != nil {
				return errInvalidTrackPair
			}

			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			if err := engine.FitSimilarity(ctx, 1); err != nil {
				return fmt.Errorf("fitting normalizer: %w", err)
			}

			explanation, err := engine.Similarity.Explain(ctx, id1, id2, cmd.Int("top"))
			if err != nil {
				return fmt.Errorf("explaining similarity: %w", err)
			}

			fmt.Printf("distance=%.4f score=%.4f\n", explanation.Distance, explanation.SimilarityScore)

			for _, d := range explanation.TopDifferences {
				fmt.Printf("  %-25s %.4f\n", d.Dimension, d.Contribution)
			}

			return nil
		},
	}
}
