// Package policy implements the packing-policy functions: choosing a
// destination sector for a new piece, and deciding which staged sectors
// must transition to sealing.
package policy

import (
	"sort"

	"github.com/ipfs-force-community/sectorbuilder/core"
)

// Destination selects (creating if necessary) the staged sector that should
// receive a piece of the given size, given the per-sector capacity. When no
// existing sector fits, it advances staged.SectorIDNonce and returns the new
// id with isNew set; it never adds a sector to staged.Sectors, which the
// caller does when it applies the decision.
//
// Sectors are preferred in ascending id order so that a builder with several
// partially-filled sectors packs deterministically.
func Destination(staged *core.StagedState, capacity uint64, pieceSize uint64) (core.SectorID, bool, error) {
	if pieceSize > capacity {
		return 0, false, core.ErrCapacityExceeded
	}

	ids := sortedSectorIDs(staged.Sectors)
	for _, id := range ids {
		sector := staged.Sectors[id]
		if !sector.SealStatus.IsPending() {
			continue
		}
		if sector.Remaining(capacity) >= pieceSize {
			return id, false, nil
		}
	}

	staged.SectorIDNonce++
	return staged.SectorIDNonce, true, nil
}

// SectorsReadyForSealing returns the ids of staged sectors that should
// transition from Pending to Sealing right now.
//
// If force is true, every Pending sector qualifies (SealAllStagedSectors).
// Otherwise a sector qualifies once it is full (accepted_bytes == capacity);
// if that still leaves more than maxNumStagedSectors non-full Pending
// sectors, the oldest non-full Pending sectors are additionally selected
// until the count is back at the limit.
func SectorsReadyForSealing(staged *core.StagedState, capacity uint64, maxNumStagedSectors int, force bool) []core.SectorID {
	ids := sortedSectorIDs(staged.Sectors)

	if force {
		var out []core.SectorID
		for _, id := range ids {
			if staged.Sectors[id].SealStatus.IsPending() {
				out = append(out, id)
			}
		}
		return out
	}

	var full []core.SectorID
	var nonFull []core.SectorID
	for _, id := range ids {
		sector := staged.Sectors[id]
		if !sector.SealStatus.IsPending() {
			continue
		}
		if sector.AcceptedBytes >= capacity {
			full = append(full, id)
		} else {
			nonFull = append(nonFull, id)
		}
	}

	out := append([]core.SectorID(nil), full...)

	if maxNumStagedSectors > 0 && len(nonFull) > maxNumStagedSectors {
		excess := len(nonFull) - maxNumStagedSectors
		out = append(out, nonFull[:excess]...)
	}

	return out
}

func sortedSectorIDs(m map[core.SectorID]*core.StagedSector) []core.SectorID {
	ids := make([]core.SectorID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
