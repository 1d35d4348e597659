package main

import (
	"github.com/urfave/cli/v3"

	auralis "github.com/matiaszanolli/auralis-fpcore"
)

func dbFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to the SQLite fingerprint database",
		Value:   "auralis.db",
	}
}

func openEngine(cmd *cli.Command) (*auralis.Engine, error) {
	return auralis.Open(cmd.String("db"), auralis.DefaultOptions())
}
