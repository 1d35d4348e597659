package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
)

func targetsCommand() *cli.Command {
	return &cli.Command{
		Name:      "targets",
		Usage:     "Derive mastering targets from a track's fingerprint",
		ArgsUsage: "<track id>",
		Flags:     []cli.Flag{dbFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			trackID, err := strconv.ParseInt(cmd.Args().Get(0), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", errInvalidTrackID, cmd.Args().Get(0))
			}

			engine, err := openEngine(cmd)
			if err != nil {
				return err
			}

			targets, err := engine.MasteringTargets(ctx, trackID)
			if err != nil {
				return fmt.Errorf("deriving mastering targets: %w", err)
			}

			fmt.Printf("target_lufs=%.1f target_crest_db=%.2f compression={ratio=%.1f amount=%.1f}\n",
				targets.TargetLUFS, targets.TargetCrestDB, targets.Compression.Ratio, targets.Compression.Amount)

			for band, adj := range targets.EQAdjustmentsDB {
				fmt.Printf("  %-10s %+.2f dB\n", band, adj)
			}

			return nil
		},
	}
}
