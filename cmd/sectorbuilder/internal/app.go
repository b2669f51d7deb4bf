// Package internal wires the sectorbuilder CLI's concrete collaborators
// (config, storage, sealer pool, proof generator) into a running scheduler,
// mirroring cmd/damocles-manager/internal's bootstrap helpers.
package internal

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/ipfs-force-community/sectorbuilder/client"
	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/internal/config"
	"github.com/ipfs-force-community/sectorbuilder/internal/manager"
	"github.com/ipfs-force-community/sectorbuilder/internal/proof"
	"github.com/ipfs-force-community/sectorbuilder/internal/scheduler"
	"github.com/ipfs-force-community/sectorbuilder/internal/sealer"
	"github.com/ipfs-force-community/sectorbuilder/internal/snapshot"
	"github.com/ipfs-force-community/sectorbuilder/pkg/kvstore"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
	"github.com/ipfs-force-community/sectorbuilder/pkg/objstore"
)

var log = logging.New("cli")

// ConfigFlag is the shared --config flag every subcommand accepts.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the sectorbuilder TOML config file",
	Value:   "./sectorbuilder.toml",
}

// App bundles a running scheduler with the resources it owns, so a command
// can drive it and then tear everything down cleanly.
type App struct {
	Client *client.Client

	cfg     config.Config
	sched   *scheduler.Scheduler
	kv      *kvstore.Badger
	pool    core.SealerPool
	runErrC chan error
}

// Bootstrap loads configuration, opens durable storage, and starts a
// scheduler loop in the background, returning an App ready to drive it.
func Bootstrap(cctx *cli.Context) (*App, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return nil, err
	}

	proverID, err := cfg.ProverID()
	if err != nil {
		return nil, err
	}

	kv, err := kvstore.OpenBadger(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	store, err := objstore.NewLocal(afero.NewOsFs(), filepath.Join(cfg.DataDir, "sectors"), cfg.SectorStore)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("opening sector store: %w", err)
	}

	pool := sealer.New(store, cfg.NumSealWorkers, cfg.RequestQueueDepth)
	proofGen := proof.New()

	input := make(chan core.Request, cfg.RequestQueueDepth)

	snapStore := snapshot.NewStore(kv)

	mgr, err := manager.Load(
		cctx.Context,
		manager.Config{MaxNumStagedSectors: cfg.MaxNumStagedSectors},
		proverID,
		core.SectorID(cfg.LastCommittedSectorID),
		store,
		snapStore,
		pool,
		proofGen,
		input,
	)
	if err != nil {
		pool.Close()
		kv.Close()
		return nil, fmt.Errorf("loading sector builder state: %w", err)
	}

	sched := scheduler.New(input, mgr)

	errC := make(chan error, 1)
	go func() {
		errC <- sched.Run(cctx.Context)
	}()

	log.Infow("scheduler started", "prover", proverID, "data_dir", cfg.DataDir)

	return &App{
		Client:  client.New(sched.Input()),
		cfg:     cfg,
		sched:   sched,
		kv:      kv,
		pool:    pool,
		runErrC: errC,
	}, nil
}

// Close requests an orderly shutdown of the scheduler loop and releases the
// storage handles it was using, aggregating every teardown failure rather
// than masking all but the last.
func (a *App) Close(ctx context.Context) error {
	var result *multierror.Error

	if err := a.Client.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("requesting shutdown: %w", err))
	}

	if err := <-a.runErrC; err != nil {
		result = multierror.Append(result, fmt.Errorf("scheduler loop: %w", err))
	}

	a.pool.Close()

	if err := a.kv.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing snapshot store: %w", err))
	}

	return result.ErrorOrNil()
}
