// Package proof implements the proof-of-spacetime generator boundary: a
// synchronous primitive producing a PoSt output from a challenge seed and a
// list of (comm_r, optional sealed sector access) input parts.
package proof

import (
	"lukechampine.com/blake3"

	"github.com/ipfs-force-community/sectorbuilder/core"
)

const faultyMarker = "faulty"

// Generator is a deterministic, hash-based stand-in for the real PoSt
// circuit: it digests the challenge seed together with every input part, so
// the same inputs always produce the same proof, and a part naming no
// sealed sector access is folded in as a faulty-sector marker rather than
// aborting the whole computation.
type Generator struct{}

var _ core.ProofGenerator = (*Generator)(nil)

func New() *Generator { return &Generator{} }

func (g *Generator) GeneratePoSt(challengeSeed [32]byte, parts []core.PoStInputPart) (core.PoStOutput, error) {
	h := blake3.New(32, nil)
	_, _ = h.Write(challengeSeed[:])

	var faults []int
	for i, part := range parts {
		_, _ = h.Write(part.CommR[:])
		if part.SealedSectorAccess != nil {
			_, _ = h.Write([]byte(*part.SealedSectorAccess))
		} else {
			_, _ = h.Write([]byte(faultyMarker))
			faults = append(faults, i)
		}
	}

	return core.PoStOutput{
		Proof:  h.Sum(nil),
		Faults: faults,
	}, nil
}
