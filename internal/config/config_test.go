package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadDecodesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectorbuilder.toml")
	contents := `
miner_address = "t01000"
data_dir = "/var/sectorbuilder"
max_num_staged_sectors = 4
last_committed_sector_id = 500
num_seal_workers = 8
request_queue_depth = 128

[sector_store]
max_unsealed_bytes_per_sector = 2048
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "t01000", cfg.MinerAddress)
	require.Equal(t, "/var/sectorbuilder", cfg.DataDir)
	require.Equal(t, 4, cfg.MaxNumStagedSectors)
	require.EqualValues(t, 500, cfg.LastCommittedSectorID)
	require.Equal(t, 8, cfg.NumSealWorkers)
	require.Equal(t, 128, cfg.RequestQueueDepth)
	require.EqualValues(t, 2048, cfg.SectorStore.MaxUnsealedBytesPerSector)
}

func TestProverIDFromAddress(t *testing.T) {
	id, err := ProverIDFromAddress("t01000")
	require.NoError(t, err)
	require.NotZero(t, id)

	// Deriving from the same address twice must be deterministic.
	id2, err := ProverIDFromAddress("t01000")
	require.NoError(t, err)
	require.Equal(t, id, id2)
}

func TestProverIDFromAddressRejectsGarbage(t *testing.T) {
	_, err := ProverIDFromAddress("not-an-address")
	require.Error(t, err)
}
