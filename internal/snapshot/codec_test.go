package snapshot

import (
	"testing"

	cborutil "github.com/filecoin-project/go-cbor-util"
	"github.com/stretchr/testify/require"

	"github.com/ipfs-force-community/sectorbuilder/core"
)

func sampleState() core.SectorBuilderState {
	staged := core.NewStagedState(101)
	staged.Sectors[102] = &core.StagedSector{
		SectorID:      102,
		SectorAccess:  "staged/102",
		AcceptedBytes: 40,
		SealStatus:    core.Pending(),
		Pieces: []core.Piece{
			{PieceKey: "p1", NumBytes: 40, OffsetInSector: 0},
		},
	}

	sealed := core.NewSealedState()
	sealed.Sectors[100] = &core.SealedSector{
		SectorID:     100,
		SectorAccess: "sealed/100",
		CommR:        [32]byte{0xAA},
		CommD:        [32]byte{0xBB},
		Proof:        []byte("proof-bytes"),
	}

	return core.SectorBuilderState{
		ProverID: core.ProverID{1, 2, 3},
		Staged:   staged,
		Sealed:   sealed,
	}
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	want := sampleState()

	raw, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, want.ProverID, got.ProverID)
	require.Equal(t, want.Staged.SectorIDNonce, got.Staged.SectorIDNonce)
	require.Equal(t, want.Staged.Sectors[102], got.Staged.Sectors[102])
	require.Equal(t, want.Sealed.Sectors[100], got.Sealed.Sectors[100])
}

func TestDecodeEmptyMapsAreNeverNil(t *testing.T) {
	state := core.SectorBuilderState{
		ProverID: core.ProverID{9},
		Staged:   core.NewStagedState(0),
		Sealed:   core.NewSealedState(),
	}

	raw, err := Encode(state)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Staged.Sectors)
	require.NotNil(t, got.Sealed.Sectors)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	future := doc{
		Version:  formatVersion + 1,
		ProverID: core.ProverID{1},
		Staged:   core.NewStagedState(0),
		Sealed:   core.NewSealedState(),
	}

	raw, err := cborutil.Dump(&future)
	require.NoError(t, err)

	_, err = Decode(raw)
	require.Error(t, err)
}

func TestKeyIsDeterministicPerProver(t *testing.T) {
	a := Key(core.ProverID{1})
	b := Key(core.ProverID{1})
	c := Key(core.ProverID{2})

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
