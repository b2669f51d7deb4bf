// Package manager implements the metadata manager: the sole owner of
// SectorBuilderState, exposing the request handlers the scheduler loop
// dispatches to.
package manager

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/internal/policy"
	"github.com/ipfs-force-community/sectorbuilder/internal/snapshot"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
)

var log = logging.New("manager")

// Config bundles the policy limits the manager enforces.
type Config struct {
	MaxNumStagedSectors int
}

// Manager is the Metadata Manager. It is not safe for concurrent use: the
// scheduler loop is its only caller, and dispatches to it strictly
// serially.
type Manager struct {
	cfg Config

	sectorStore   core.SectorStore
	snapshotStore core.SnapshotStore
	sealerPool    core.SealerPool
	proofGen      core.ProofGenerator

	schedulerInputTx chan<- core.Request

	state                       core.SectorBuilderState
	maxUserBytesPerStagedSector uint64
}

// Load reconstructs a Manager's state from the snapshot store if a snapshot
// exists for proverID, or else starts fresh with the nonce seeded at
// lastCommittedSectorID.
func Load(
	ctx context.Context,
	cfg Config,
	proverID core.ProverID,
	lastCommittedSectorID core.SectorID,
	sectorStore core.SectorStore,
	snapshotStore core.SnapshotStore,
	sealerPool core.SealerPool,
	proofGen core.ProofGenerator,
	schedulerInputTx chan<- core.Request,
) (*Manager, error) {
	state, err := loadOrInit(ctx, proverID, lastCommittedSectorID, snapshotStore)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrStore, err)
	}

	return &Manager{
		cfg:                         cfg,
		sectorStore:                 sectorStore,
		snapshotStore:               snapshotStore,
		sealerPool:                  sealerPool,
		proofGen:                    proofGen,
		schedulerInputTx:            schedulerInputTx,
		state:                       state,
		maxUserBytesPerStagedSector: sectorStore.MaxUnsealedBytesPerSector(),
	}, nil
}

func loadOrInit(ctx context.Context, proverID core.ProverID, lastCommittedSectorID core.SectorID, store core.SnapshotStore) (core.SectorBuilderState, error) {
	raw, found, err := store.Load(ctx, snapshot.Key(proverID))
	if err != nil {
		return core.SectorBuilderState{}, err
	}
	if !found {
		return core.SectorBuilderState{
			ProverID: proverID,
			Staged:   core.NewStagedState(lastCommittedSectorID),
			Sealed:   core.NewSealedState(),
		}, nil
	}

	return snapshot.Decode(raw)
}

// MaxUserBytes returns the per-sector capacity limit.
func (m *Manager) MaxUserBytes() uint64 {
	return m.maxUserBytesPerStagedSector
}

// AddPiece delegates to the packing policy to choose or create a
// destination sector, writes the piece bytes, records the piece, and
// triggers scheduling + checkpointing.
func (m *Manager) AddPiece(ctx context.Context, pieceKey string, data []byte) (core.SectorID, error) {
	if _, err := cid.Decode(pieceKey); err != nil {
		return 0, fmt.Errorf("%w: %q: %s", core.ErrInvalidPieceKey, pieceKey, err)
	}

	size := uint64(len(data))

	nonce := m.state.Staged.SectorIDNonce
	id, isNew, err := policy.Destination(&m.state.Staged, m.maxUserBytesPerStagedSector, size)
	if err != nil {
		return 0, err
	}

	var sector *core.StagedSector
	if isNew {
		sector = &core.StagedSector{
			SectorID:     id,
			SectorAccess: m.sectorStore.NewSectorAccess(id),
			SealStatus:   core.Pending(),
		}
	} else {
		sector = m.state.Staged.Sectors[id]
	}

	offset := sector.AcceptedBytes
	if err := m.sectorStore.WritePiece(ctx, sector.SectorAccess, offset, bytes.NewReader(data), size); err != nil {
		// The policy decision is discarded; no metadata mutation is visible.
		// The written bytes, if any landed before the error, are an orphan
		// blob (see DESIGN.md's Open Questions resolution).
		m.state.Staged.SectorIDNonce = nonce
		return 0, fmt.Errorf("writing piece %q: %w", pieceKey, err)
	}

	sector.Pieces = append(sector.Pieces, core.Piece{
		PieceKey:       pieceKey,
		NumBytes:       core.PieceSize(size),
		OffsetInSector: offset,
	})
	sector.AcceptedBytes += size

	if isNew {
		m.state.Staged.Sectors[id] = sector
	}

	if err := m.checkAndSchedule(false); err != nil {
		return 0, err
	}
	if err := m.checkpoint(ctx); err != nil {
		return 0, err
	}

	return id, nil
}

// GetSealStatus consults staged then sealed state.
func (m *Manager) GetSealStatus(id core.SectorID) (core.SealStatus, error) {
	if s, ok := m.state.Staged.Sectors[id]; ok {
		return s.SealStatus, nil
	}
	if _, ok := m.state.Sealed.Sectors[id]; ok {
		return core.Sealed(), nil
	}
	return core.SealStatus{}, core.ErrSectorNotFound
}

// GetSealedSectors returns a snapshot-in-time clone of every sealed sector.
func (m *Manager) GetSealedSectors() []*core.SealedSector {
	out := make([]*core.SealedSector, 0, len(m.state.Sealed.Sectors))
	for _, s := range m.state.Sealed.Sectors {
		out = append(out, s.Clone())
	}
	return out
}

// GetStagedSectors returns a snapshot-in-time clone of every staged sector.
func (m *Manager) GetStagedSectors() []*core.StagedSector {
	out := make([]*core.StagedSector, 0, len(m.state.Staged.Sectors))
	for _, s := range m.state.Staged.Sectors {
		out = append(out, s.Clone())
	}
	return out
}

// SealAllStagedSectors forces every Pending staged sector into Sealing.
func (m *Manager) SealAllStagedSectors(ctx context.Context) error {
	if err := m.checkAndSchedule(true); err != nil {
		return err
	}
	return m.checkpoint(ctx)
}

// RetrievePiece scans the sealed map for the piece and dispatches an Unseal
// job, or immediately reports ErrPieceNotFound.
func (m *Manager) RetrievePiece(pieceKey string, reply chan<- core.Result[[]byte]) {
	for _, sealed := range m.state.Sealed.Sectors {
		if _, ok := sealed.HasPiece(pieceKey); ok {
			err := m.sealerPool.Unseal(core.UnsealJob{
				PieceKey:     pieceKey,
				SealedSector: sealed.Clone(),
				Reply:        reply,
			})
			if err != nil {
				log.Errorw("dispatch unseal", "piece", pieceKey, "err", err)
				reply <- core.Err[[]byte](core.ErrControlChannelBroken)
			}
			return
		}
	}

	reply <- core.Err[[]byte](fmt.Errorf("%w: %s", core.ErrPieceNotFound, pieceKey))
}

// GeneratePoSt folds sealed sectors into a comm_r -> sector_access mapping
// (first occurrence wins, see DESIGN.md) and invokes the proof generator
// synchronously.
func (m *Manager) GeneratePoSt(commRs [][32]byte, challengeSeed [32]byte) (core.PoStOutput, error) {
	commRToAccess := map[[32]byte]string{}
	for _, sealed := range m.state.Sealed.Sectors {
		if _, exists := commRToAccess[sealed.CommR]; !exists {
			commRToAccess[sealed.CommR] = sealed.SectorAccess
		}
	}

	parts := make([]core.PoStInputPart, 0, len(commRs))
	for _, commR := range commRs {
		part := core.PoStInputPart{CommR: commR}
		if access, ok := commRToAccess[commR]; ok {
			a := access
			part.SealedSectorAccess = &a
		}
		parts = append(parts, part)
	}

	return m.proofGen.GeneratePoSt(challengeSeed, parts)
}

// HandleSealResult reconciles an asynchronous seal completion. Finding no
// staged sector with this id on a successful result is a protocol
// violation and is fatal.
func (m *Manager) HandleSealResult(ctx context.Context, id core.SectorID, result core.Result[*core.SealedSector]) error {
	if result.Err != nil {
		if staged, ok := m.state.Staged.Sectors[id]; ok {
			staged.SealStatus = core.Failed(result.Err.Error())
		}
	} else {
		if _, ok := m.state.Staged.Sectors[id]; !ok {
			return fmt.Errorf("%w: handle_seal_result for unknown sector %d", core.ErrControlChannelBroken, id)
		}
		delete(m.state.Staged.Sectors, id)
		m.state.Sealed.Sectors[id] = result.Value
	}

	if err := m.checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpoint after seal result for sector %d: %w", id, err)
	}
	return nil
}

// checkAndSchedule runs the packing policy and dispatches Seal jobs for
// every sector it selects.
func (m *Manager) checkAndSchedule(force bool) error {
	ready := policy.SectorsReadyForSealing(&m.state.Staged, m.maxUserBytesPerStagedSector, m.cfg.MaxNumStagedSectors, force)

	for _, id := range ready {
		sector, ok := m.state.Staged.Sectors[id]
		if !ok {
			return fmt.Errorf("%w: scheduling unknown sector %d", core.ErrControlChannelBroken, id)
		}

		sector.SealStatus = core.Sealing()

		if err := m.sealerPool.Seal(core.SealJob{
			StagedSector: sector.Clone(),
			ReplyTo:      m.schedulerInputTx,
		}); err != nil {
			return fmt.Errorf("%w: dispatching seal for sector %d: %s", core.ErrControlChannelBroken, id, err)
		}

		log.Infow("scheduled sector for sealing", "sector", id, "bytes", sector.AcceptedBytes)
	}

	return nil
}

// checkpoint persists the current state under a key derived from the prover
// id. A failure here is fatal: the manager cannot guarantee the in-memory
// state it just mutated is durable, so it cannot safely keep serving
// requests against it.
func (m *Manager) checkpoint(ctx context.Context) error {
	raw, err := snapshot.Encode(m.state)
	if err != nil {
		return fmt.Errorf("%w: encoding snapshot: %s", core.ErrStore, err)
	}

	if err := m.snapshotStore.Put(ctx, snapshot.Key(m.state.ProverID), raw); err != nil {
		return fmt.Errorf("%w: persisting snapshot: %s", core.ErrStore, err)
	}

	return nil
}
