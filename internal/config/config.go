// Package config loads the sector builder's policy limits and storage
// paths from a TOML file, mirroring the damocles manager's configuration
// conventions.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/filecoin-project/go-address"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/pkg/objstore"
)

// Config is the top-level on-disk configuration for the sectorbuilder
// daemon.
type Config struct {
	MinerAddress string `toml:"miner_address"`

	DataDir string `toml:"data_dir"`

	MaxNumStagedSectors int `toml:"max_num_staged_sectors"`

	LastCommittedSectorID uint64 `toml:"last_committed_sector_id"`

	SectorStore objstore.Config `toml:"sector_store"`

	NumSealWorkers int `toml:"num_seal_workers"`
	RequestQueueDepth int `toml:"request_queue_depth"`

	// HTTPListenAddress is where `run` serves the piece HTTP proxy.
	HTTPListenAddress string `toml:"http_listen_address"`
}

// Default returns the configuration used when no file is present, suitable
// for local experimentation.
func Default() Config {
	return Config{
		MaxNumStagedSectors:   2,
		LastCommittedSectorID: 0,
		SectorStore: objstore.Config{
			MaxUnsealedBytesPerSector: 1024 * 1024 * 1024, // 1GiB
		},
		NumSealWorkers:    2,
		RequestQueueDepth: 64,
		HTTPListenAddress: "127.0.0.1:2345",
	}
}

// Load decodes a TOML config file at path, falling back to Default() field
// values for anything left unset.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config %s: %w", path, err)
	}

	return cfg, nil
}

// ProverID derives the 31-byte sector builder prover identity from the
// configured miner address's actor-id payload, matching the convention
// Filecoin tooling uses to turn a miner address into a prover id.
func (c Config) ProverID() (core.ProverID, error) {
	return ProverIDFromAddress(c.MinerAddress)
}

// ProverIDFromAddress parses addr and copies its payload into a ProverID,
// zero-padded on the right to 31 bytes.
func ProverIDFromAddress(addr string) (core.ProverID, error) {
	a, err := address.NewFromString(addr)
	if err != nil {
		return core.ProverID{}, fmt.Errorf("parsing miner address %q: %w", addr, err)
	}

	var out core.ProverID
	payload := a.Payload()
	if len(payload) > len(out) {
		return core.ProverID{}, fmt.Errorf("address payload for %q too long for a prover id", addr)
	}
	copy(out[:], payload)

	return out, nil
}
