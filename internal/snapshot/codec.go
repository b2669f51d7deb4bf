// Package snapshot serializes and deserializes SectorBuilderState to and
// from the opaque key-value snapshot store.
//
// Snapshots are internal, non-consensus-critical blobs, so this uses
// go-ipld-cbor's reflection-based struct codec (encoding via go-cbor-util's
// thin Dump wrapper) rather than hand- or cbor-gen-generated marshalers: no chain
// schema stability is required here, only load(put(x)) == x.
package snapshot

import (
	"fmt"

	cbor "github.com/ipfs/go-ipld-cbor"
	cborutil "github.com/filecoin-project/go-cbor-util"

	"github.com/ipfs-force-community/sectorbuilder/core"
)

const formatVersion = 1

// doc is the on-disk shape of a snapshot; it is versioned so a future
// incompatible encoding can be detected rather than silently misread.
type doc struct {
	Version  int
	ProverID core.ProverID
	Staged   core.StagedState
	Sealed   core.SealedState
}

// Key derives the deterministic snapshot-store key for a prover id.
func Key(prover core.ProverID) string {
	return fmt.Sprintf("sectorbuilder/%x", prover[:])
}

// Encode produces the durable byte form of state.
func Encode(state core.SectorBuilderState) ([]byte, error) {
	d := doc{
		Version:  formatVersion,
		ProverID: state.ProverID,
		Staged:   state.Staged,
		Sealed:   state.Sealed,
	}

	b, err := cborutil.Dump(&d)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return b, nil
}

// Decode reconstructs a SectorBuilderState from bytes previously produced by
// Encode.
func Decode(raw []byte) (core.SectorBuilderState, error) {
	var d doc
	if err := cbor.DecodeInto(raw, &d); err != nil {
		return core.SectorBuilderState{}, fmt.Errorf("decoding snapshot: %w", err)
	}

	if d.Version != formatVersion {
		return core.SectorBuilderState{}, fmt.Errorf("decoding snapshot: unsupported format version %d", d.Version)
	}

	if d.Staged.Sectors == nil {
		d.Staged.Sectors = map[core.SectorID]*core.StagedSector{}
	}
	if d.Sealed.Sectors == nil {
		d.Sealed.Sectors = map[core.SectorID]*core.SealedSector{}
	}

	return core.SectorBuilderState{
		ProverID: d.ProverID,
		Staged:   d.Staged,
		Sealed:   d.Sealed,
	}, nil
}
