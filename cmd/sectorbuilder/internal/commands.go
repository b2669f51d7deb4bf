package internal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/filecoin-project/go-bitfield"
	"github.com/urfave/cli/v2"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/pkg/pieceapi"
)

const shutdownTimeout = 10 * time.Second

// RunCmd starts the scheduler loop and the piece HTTP proxy, and blocks
// until SIGINT/SIGTERM/SIGHUP, unlike every other subcommand here which
// bootstraps the scheduler just long enough to perform one request.
var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "start the scheduler and serve the piece HTTP proxy until signaled",
	Flags: []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:    app.cfg.HTTPListenAddress,
			Handler: pieceapi.NewProxy(app.Client),
		}

		serveErrC := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrC <- err
				return
			}
			serveErrC <- nil
		}()

		log.Infow("piece HTTP proxy listening", "addr", app.cfg.HTTPListenAddress)

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		var runErr error
		select {
		case <-ctx.Done():
		case runErr = <-serveErrC:
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("http proxy shutdown", "err", err)
		}

		if closeErr := app.Close(shutdownCtx); closeErr != nil {
			if runErr == nil {
				runErr = closeErr
			}
		}

		return runErr
	},
}

// AddPieceCmd stages a single file's bytes as a new piece.
var AddPieceCmd = &cli.Command{
	Name:      "add-piece",
	Usage:     "stage a piece's bytes into a sector",
	ArgsUsage: "<piece-cid-key> <path-to-bytes>",
	Flags:     []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return cli.ShowCommandHelp(cctx, "add-piece")
		}

		key := cctx.Args().Get(0)
		data, err := os.ReadFile(cctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("reading %s: %w", cctx.Args().Get(1), err)
		}

		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}
		defer app.Close(cctx.Context)

		id, err := app.Client.AddPiece(cctx.Context, key, data)
		if err != nil {
			return err
		}

		color.Green("staged into sector %d (%s)", id, units.BytesSize(float64(len(data))))
		return nil
	},
}

// StatusCmd prints the seal status of one sector.
var StatusCmd = &cli.Command{
	Name:      "status",
	Usage:     "print the seal status of a sector",
	ArgsUsage: "<sector-id>",
	Flags:     []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return cli.ShowCommandHelp(cctx, "status")
		}

		var id uint64
		if _, err := fmt.Sscanf(cctx.Args().Get(0), "%d", &id); err != nil {
			return fmt.Errorf("parsing sector id: %w", err)
		}

		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}
		defer app.Close(cctx.Context)

		status, err := app.Client.GetSealStatus(cctx.Context, core.SectorID(id))
		if err != nil {
			return err
		}

		fmt.Println(status.String())
		return nil
	},
}

// SectorsCmd lists staged and sealed sectors, plus the total number of
// distinct sector ids, counted through a go-bitfield set (grounded on
// go-bitfield's use for sector-number sets throughout the Filecoin sealing
// stack).
var SectorsCmd = &cli.Command{
	Name:  "sectors",
	Usage: "list staged and sealed sectors",
	Flags: []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}
		defer app.Close(cctx.Context)

		staged, err := app.Client.GetStagedSectors(cctx.Context)
		if err != nil {
			return err
		}
		sealed, err := app.Client.GetSealedSectors(cctx.Context)
		if err != nil {
			return err
		}

		var ids []uint64
		for _, s := range staged {
			ids = append(ids, uint64(s.SectorID))
			fmt.Printf("staged  %6d  %-12s  %s / %s\n", s.SectorID, s.SealStatus.String(),
				units.BytesSize(float64(s.AcceptedBytes)), units.BytesSize(float64(len(s.Pieces))))
		}
		for _, s := range sealed {
			ids = append(ids, uint64(s.SectorID))
			fmt.Printf("sealed  %6d  comm_r=%s\n", s.SectorID, hex.EncodeToString(s.CommR[:]))
		}

		bf := bitfield.NewFromSet(ids)
		count, err := bf.Count()
		if err == nil {
			fmt.Printf("\n%d total sectors known\n", count)
		}

		return nil
	},
}

// SealCmd forces every pending staged sector into sealing.
var SealCmd = &cli.Command{
	Name:  "seal",
	Usage: "seal all pending staged sectors now",
	Flags: []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}
		defer app.Close(cctx.Context)

		return app.Client.SealAllStagedSectors(cctx.Context)
	},
}

// RetrieveCmd unseals and prints a previously staged piece's bytes.
var RetrieveCmd = &cli.Command{
	Name:      "retrieve",
	Usage:     "unseal and print a piece's bytes",
	ArgsUsage: "<piece-cid-key>",
	Flags:     []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return cli.ShowCommandHelp(cctx, "retrieve")
		}

		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}
		defer app.Close(cctx.Context)

		data, err := app.Client.RetrievePiece(cctx.Context, cctx.Args().Get(0))
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

// PoStCmd generates a proof-of-spacetime for the given comm_r hex strings.
var PoStCmd = &cli.Command{
	Name:      "post",
	Usage:     "generate a proof-of-spacetime over the given comm_rs",
	ArgsUsage: "<comm-r-hex>...",
	Flags:     []cli.Flag{ConfigFlag},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() == 0 {
			return cli.ShowCommandHelp(cctx, "post")
		}

		commRs := make([][32]byte, 0, cctx.NArg())
		for _, arg := range cctx.Args().Slice() {
			b, err := hex.DecodeString(arg)
			if err != nil || len(b) != 32 {
				return fmt.Errorf("parsing comm_r %q: expected 32 bytes of hex", arg)
			}
			var commR [32]byte
			copy(commR[:], b)
			commRs = append(commRs, commR)
		}

		app, err := Bootstrap(cctx)
		if err != nil {
			return err
		}
		defer app.Close(cctx.Context)

		var seed [32]byte
		out, err := app.Client.GeneratePoSt(cctx.Context, commRs, seed)
		if err != nil {
			return err
		}

		fmt.Printf("proof: %s\n", hex.EncodeToString(out.Proof))
		if len(out.Faults) > 0 {
			color.Yellow("faulty input parts: %v", out.Faults)
		}
		return nil
	},
}
