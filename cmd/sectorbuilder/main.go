// Command sectorbuilder is a CLI front-end over the sector builder
// scheduler. Most subcommands bootstrap the scheduler against durable
// on-disk state, perform one request, and shut the loop back down; `run`
// instead starts the scheduler and the piece HTTP proxy and blocks until
// signaled.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ipfs-force-community/sectorbuilder/cmd/sectorbuilder/internal"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
	"github.com/ipfs-force-community/sectorbuilder/ver"
)

func main() {
	app := &cli.App{
		Name:    "sectorbuilder",
		Usage:   "pack pieces into sectors, schedule sealing, serve sector queries",
		Version: ver.VersionStr(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "set the log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Before: func(cctx *cli.Context) error {
			return logging.SetLevel("*", cctx.String("log-level"))
		},
		Commands: []*cli.Command{
			internal.RunCmd,
			internal.AddPieceCmd,
			internal.StatusCmd,
			internal.SectorsCmd,
			internal.SealCmd,
			internal.RetrieveCmd,
			internal.PoStCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sectorbuilder: %s\n", err)
		os.Exit(1)
	}
}
