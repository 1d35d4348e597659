package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Build, update, and inspect the K-NN similarity graph",
		Commands: []*cli.Command{
			graphBuildCommand(),
			graphUpdateCommand(),
			graphNeighborsCommand(),
			graphStatsCommand(),
			graphClearCommand(),
		},
	}
}

func graphBuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Rebuild the similarity graph for every fingerprinted track",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:  "k",
				Usage: "Neighbors per track",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "no-clear",
				Usage: "Don't clear existing edges before rebuilding",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			if err := engine.FitSimilarity(ctx, 1); err != nil {
				return fmt.Errorf("fitting normalizer: %w", err)
			}

			stats, err := engine.Graph.BuildGraph(ctx, cmd.Int("k"), !cmd.Bool("no-clear"))
			if err != nil {
				return fmt.Errorf("building graph: %w", err)
			}

			printGraphStats(stats)

			return nil
		},
	}
}

func graphUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Recompute neighbor edges for specific tracks",
		ArgsUsage: "<track id>...",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:  "k",
				Usage: "Neighbors per track",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errInvalidTrackID
			}

			trackIDs := make([]int64, cmd.NArg())

			for i := 0; i < cmd.NArg(); i++ {
				id, err := strconv.ParseInt(cmd.Args().Get(i), 10, 64)
				if err != nil {
					return fmt.Errorf("%w: %q", errInvalidTrackID, cmd.Args().Get(i))
				}

				trackIDs[i] = id
			}

			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			if err := engine.FitSimilarity(ctx, 1); err != nil {
				return fmt.Errorf("fitting normalizer: %w", err)
			}

			edges, err := engine.Graph.UpdateGraph(ctx, trackIDs, cmd.Int("k"))
			if err != nil {
				return fmt.Errorf("updating graph: %w", err)
			}

			fmt.Printf("wrote %d edges for %d track(s)\n", edges, len(trackIDs))

			return nil
		},
	}
}

func graphNeighborsCommand() *cli.Command {
	return &cli.Command{
		Name:      "neighbors",
		Usage:     "List a track's nearest neighbors from the stored graph",
		ArgsUsage: "<track id>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:  "n",
				Usage: "Max neighbors to return",
				Value: 10,
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

			edges, err := engine.Graph.GetNeighbors(ctx, trackID, cmd.Int("n"))
			if err != nil {
				return fmt.Errorf("fetching neighbors: %w", err)
			}

			for _, e := range edges {
				fmt.Printf("%d\trank=%d\tdistance=%.4f\tscore=%.4f\n",
					e.SimilarTrackID, e.Rank, e.Distance, e.SimilarityScore)
			}

			return nil
		},
	}
}

func graphStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print the current similarity graph's aggregate statistics",
		Flags: []cli.Flag{dbFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			stats, err := engine.Graph.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("fetching graph stats: %w", err)
			}

			printGraphStats(stats)

			return nil
		},
	}
}

func graphClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every edge in the similarity graph",
		Flags: []cli.Flag{dbFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			removed, err := engine.Graph.ClearGraph(ctx)
			if err != nil {
				return fmt.Errorf("clearing graph: %w", err)
			}

			fmt.Printf("removed %d edges\n", removed)

			return nil
		},
	}
}

func printGraphStats(stats storage.GraphStats) {
	fmt.Printf("tracks=%d edges=%d avg_distance=%.4f min_distance=%.4f max_distance=%.4f\n",
		stats.TotalTracks, stats.TotalEdges, stats.AvgDistance, stats.MinDistance, stats.MaxDistance)
}
