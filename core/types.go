// Package core defines the data model and external-collaborator interfaces
// shared by the sector builder scheduler and metadata manager.
package core

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/abi"
)

// ProverID is the fixed-width identity of the miner this builder is sealing
// sectors on behalf of. It namespaces the durable snapshot.
type ProverID [31]byte

func (p ProverID) String() string {
	return fmt.Sprintf("%x", p[:])
}

// SectorID is a monotonically increasing identifier scoped to a single
// ProverID.
type SectorID uint64

// PieceSize is expressed in the same unit Filecoin piece sizes conventionally
// use; it is a uint64 underneath, so spec arithmetic over byte counts is
// unaffected.
type PieceSize = abi.UnpaddedPieceSize

// Piece is a single caller-supplied byte blob packed into a sector.
type Piece struct {
	PieceKey       string
	NumBytes       PieceSize
	OffsetInSector uint64
}

// SealStatus is the tagged lifecycle state of a staged sector.
type SealStatus struct {
	StateName string // "pending", "sealing", "failed", "sealed"
	FailureMsg string
}

func Pending() SealStatus { return SealStatus{StateName: "pending"} }
func Sealing() SealStatus { return SealStatus{StateName: "sealing"} }
func Sealed() SealStatus  { return SealStatus{StateName: "sealed"} }
func Failed(msg string) SealStatus {
	return SealStatus{StateName: "failed", FailureMsg: msg}
}

func (s SealStatus) IsPending() bool { return s.StateName == "pending" }
func (s SealStatus) IsSealing() bool { return s.StateName == "sealing" }
func (s SealStatus) IsFailed() bool  { return s.StateName == "failed" }
func (s SealStatus) IsSealed() bool  { return s.StateName == "sealed" }

func (s SealStatus) String() string {
	if s.StateName == "failed" {
		return fmt.Sprintf("failed(%s)", s.FailureMsg)
	}
	return s.StateName
}

// StagedSector accumulates pieces until the packing policy decides it should
// be sealed.
type StagedSector struct {
	SectorID      SectorID
	SectorAccess  string
	Pieces        []Piece
	SealStatus    SealStatus
	AcceptedBytes uint64
}

// Clone returns a deep copy suitable for handing to a worker or a caller
// without risking a data race with the manager's own mutation of the
// original.
func (s *StagedSector) Clone() *StagedSector {
	out := *s
	out.Pieces = append([]Piece(nil), s.Pieces...)
	return &out
}

// Remaining reports how many more bytes this sector can accept before it
// hits the per-sector capacity.
func (s *StagedSector) Remaining(capacity uint64) uint64 {
	if s.AcceptedBytes >= capacity {
		return 0
	}
	return capacity - s.AcceptedBytes
}

// SealedSector is produced once, by a successful seal, and never mutated
// thereafter.
type SealedSector struct {
	SectorID     SectorID
	SectorAccess string
	Pieces       []Piece
	CommR        [32]byte
	CommD        [32]byte
	Proof        []byte
}

func (s *SealedSector) Clone() *SealedSector {
	out := *s
	out.Pieces = append([]Piece(nil), s.Pieces...)
	out.Proof = append([]byte(nil), s.Proof...)
	return &out
}

// HasPiece reports whether this sealed sector contains a piece with the
// given key.
func (s *SealedSector) HasPiece(pieceKey string) (Piece, bool) {
	for _, p := range s.Pieces {
		if p.PieceKey == pieceKey {
			return p, true
		}
	}
	return Piece{}, false
}

// StagedState is the staging-area bucket of the state graph.
type StagedState struct {
	SectorIDNonce SectorID
	Sectors       map[SectorID]*StagedSector
}

func NewStagedState(nonce SectorID) StagedState {
	return StagedState{SectorIDNonce: nonce, Sectors: map[SectorID]*StagedSector{}}
}

// SealedState is the sealed bucket of the state graph.
type SealedState struct {
	Sectors map[SectorID]*SealedSector
}

func NewSealedState() SealedState {
	return SealedState{Sectors: map[SectorID]*SealedSector{}}
}

// SectorBuilderState is the full, exclusively-owned state graph mutated only
// by the metadata manager.
type SectorBuilderState struct {
	ProverID ProverID
	Staged   StagedState
	Sealed   SealedState
}

// PoStInputPart is one element of the input to the proof generator: a
// requested comm_r together with the sealed sector access that backs it, if
// any is currently known.
type PoStInputPart struct {
	CommR              [32]byte
	SealedSectorAccess *string
}

// PoStOutput is the synchronous output of the proof generator.
type PoStOutput struct {
	Proof    []byte
	Faults   []int
}
