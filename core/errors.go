package core

import "errors"

// Recoverable error kinds: surfaced on a reply channel, never taken to mean
// the coordinator itself is unhealthy.
var (
	// ErrCapacityExceeded is returned to an AddPiece caller when no staged
	// sector can accept the piece within policy limits.
	ErrCapacityExceeded = errors.New("sectorbuilder: piece exceeds sector capacity")

	// ErrSectorNotFound is returned by GetSealStatus for an id present in
	// neither the staged nor the sealed map.
	ErrSectorNotFound = errors.New("sectorbuilder: sector not found")

	// ErrPieceNotFound is returned by RetrievePiece when no sealed sector
	// holds the requested piece key.
	ErrPieceNotFound = errors.New("sectorbuilder: piece not found")

	// ErrInvalidPieceKey is returned by AddPiece when the piece key does not
	// parse as a CID.
	ErrInvalidPieceKey = errors.New("sectorbuilder: piece key is not a valid cid")
)

// Fatal error kinds: the coordinator cannot make progress after one of
// these and must abort rather than continue with possibly inconsistent
// state.
var (
	// ErrControlChannelBroken marks a send/recv on a control channel that
	// the protocol guarantees should never fail.
	ErrControlChannelBroken = errors.New("sectorbuilder: control channel broken")

	// ErrCoordinatorShutDown is observed by a caller whose reply channel was
	// dropped because the coordinator already terminated.
	ErrCoordinatorShutDown = errors.New("sectorbuilder: coordinator shut down")

	// ErrStore marks a snapshot read/write failure.
	ErrStore = errors.New("sectorbuilder: snapshot store error")
)
