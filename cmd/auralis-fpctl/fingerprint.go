package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	auralis "github.com/matiaszanolli/auralis-fpcore"
)

func fingerprintCommand() *cli.Command {
	return &cli.Command{
		Name:  "fingerprint",
		Usage: "Fingerprint every track in the library with no fingerprint yet",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of worker goroutines (0 = auto-detect from CPU count)",
			},
			&cli.IntFlag{
				Name:  "semaphore",
				Usage: "Max concurrent audio decodes (0 = match --workers)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := auralis.DefaultOptions()
			opts.NumWorkers = cmd.Int("workers")
			opts.SemaphoreSize = cmd.Int("semaphore")

			engine, err := auralis.Open(cmd.String("db"), opts)
			if err != nil {
				return err
			}

			pool := engine.NewPool(func(event auralis.ProgressEvent) {
				status := "completed"
				if event.Err != nil {
					status = "failed: " + event.Err.Error()
				} else if event.Cached {
					status = "cached"
				}

				fmt.Printf("track %d: %s (%s)\n", event.TrackID, status, event.Duration)
			})

			stats := pool.Run(ctx)

			fmt.Printf("completed=%d failed=%d cached=%d total_time=%s\n",
				stats.Completed, stats.Failed, stats.Cached, stats.TotalTime)

			return nil
		},
	}
}
