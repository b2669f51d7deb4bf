package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipfs-force-community/sectorbuilder/core"
)

func TestDestinationCreatesNewSectorWhenEmpty(t *testing.T) {
	staged := core.NewStagedState(100)

	id, isNew, err := Destination(&staged, 1024, 500)
	require.NoError(t, err)
	require.True(t, isNew)
	require.EqualValues(t, 101, id)
}

func TestDestinationReusesSectorWithRoom(t *testing.T) {
	staged := core.NewStagedState(100)
	staged.Sectors[101] = &core.StagedSector{SectorID: 101, AcceptedBytes: 500, SealStatus: core.Pending()}

	id, isNew, err := Destination(&staged, 1024, 400)
	require.NoError(t, err)
	require.False(t, isNew)
	require.EqualValues(t, 101, id)
}

func TestDestinationSkipsFullSectorAndCreatesNew(t *testing.T) {
	staged := core.NewStagedState(101)
	staged.Sectors[101] = &core.StagedSector{SectorID: 101, AcceptedBytes: 500, SealStatus: core.Pending()}

	// A 600-byte piece doesn't fit in a sector that already holds 500 of 1024.
	id, isNew, err := Destination(&staged, 1024, 600)
	require.NoError(t, err)
	require.True(t, isNew)
	require.EqualValues(t, 102, id)
}

func TestDestinationSkipsSealingSector(t *testing.T) {
	staged := core.NewStagedState(101)
	staged.Sectors[101] = &core.StagedSector{SectorID: 101, AcceptedBytes: 0, SealStatus: core.Sealing()}

	id, isNew, err := Destination(&staged, 1024, 10)
	require.NoError(t, err)
	require.True(t, isNew)
	require.EqualValues(t, 102, id)
}

func TestDestinationCapacityExceeded(t *testing.T) {
	staged := core.NewStagedState(100)

	_, _, err := Destination(&staged, 1024, 2000)
	require.ErrorIs(t, err, core.ErrCapacityExceeded)
	require.EqualValues(t, 100, staged.SectorIDNonce, "nonce must not advance on a rejected piece")
}

func TestSectorsReadyForSealingFullSectorOnly(t *testing.T) {
	staged := core.NewStagedState(100)
	staged.Sectors[101] = &core.StagedSector{SectorID: 101, AcceptedBytes: 1024, SealStatus: core.Pending()}
	staged.Sectors[102] = &core.StagedSector{SectorID: 102, AcceptedBytes: 600, SealStatus: core.Pending()}

	ready := SectorsReadyForSealing(&staged, 1024, 2, false)
	require.Equal(t, []core.SectorID{101}, ready)
}

func TestSectorsReadyForSealingAdmissionPressure(t *testing.T) {
	staged := core.NewStagedState(100)
	staged.Sectors[101] = &core.StagedSector{SectorID: 101, AcceptedBytes: 10, SealStatus: core.Pending()}
	staged.Sectors[102] = &core.StagedSector{SectorID: 102, AcceptedBytes: 20, SealStatus: core.Pending()}
	staged.Sectors[103] = &core.StagedSector{SectorID: 103, AcceptedBytes: 30, SealStatus: core.Pending()}

	ready := SectorsReadyForSealing(&staged, 1024, 2, false)
	require.Equal(t, []core.SectorID{101}, ready, "oldest non-full sector sheds first to respect the cap")
}

func TestSectorsReadyForSealingForceSealsEverythingPending(t *testing.T) {
	staged := core.NewStagedState(100)
	staged.Sectors[101] = &core.StagedSector{SectorID: 101, AcceptedBytes: 10, SealStatus: core.Pending()}
	staged.Sectors[102] = &core.StagedSector{SectorID: 102, AcceptedBytes: 0, SealStatus: core.Failed("boom")}

	ready := SectorsReadyForSealing(&staged, 1024, 2, true)
	require.Equal(t, []core.SectorID{101}, ready, "force only sweeps Pending sectors, never Failed ones")
}

func TestSectorsReadyForSealingZeroPending(t *testing.T) {
	staged := core.NewStagedState(100)

	ready := SectorsReadyForSealing(&staged, 1024, 2, true)
	require.Empty(t, ready)
}
