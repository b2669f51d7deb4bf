// Package scheduler implements the scheduler loop: a single-threaded event
// loop that owns the metadata manager and dispatches Requests serially
// until a Shutdown request is popped.
package scheduler

import (
	"context"
	"errors"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/internal/manager"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
)

var log = logging.New("scheduler")

// Scheduler owns the request channel and the metadata manager. Exactly one
// goroutine (Run's caller) ever touches the manager.
type Scheduler struct {
	input chan core.Request
	mgr   *manager.Manager
}

// New wires a Scheduler around an already-loaded Manager and the channel
// producers enqueue Requests on.
func New(input chan core.Request, mgr *manager.Manager) *Scheduler {
	return &Scheduler{input: input, mgr: mgr}
}

// Input returns the channel producers (CLI/RPC handlers, the sealer pool's
// HandleSealResult callbacks) enqueue Requests on.
func (s *Scheduler) Input() chan<- core.Request {
	return s.input
}

// Run blocks, dispatching one Request at a time to the metadata manager,
// until a Shutdown request is received or the input channel is closed.
//
// A broken control channel or a checkpoint failure after a mutation is
// fatal: Run returns that error to its caller, which is
// expected to abort the process rather than attempt to continue with
// possibly inconsistent state. The exception is RetrievePiece: a failure to
// dispatch its Unseal job is reported as ErrControlChannelBroken on that
// request's reply only, and Run keeps going. Reply channels are always
// created with capacity 1 and read by exactly one waiter, so a send to one
// never blocks.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		req, ok := <-s.input
		if !ok {
			return core.ErrControlChannelBroken
		}

		switch req.Kind {
		case core.KindShutdown:
			log.Info("scheduler shutting down")
			return nil

		case core.KindAddPiece:
			id, err := s.mgr.AddPiece(ctx, req.AddPieceKey, req.AddPieceBytes)
			req.AddPieceReply <- core.Result[core.SectorID]{Value: id, Err: err}
			if isFatal(err) {
				return err
			}

		case core.KindGetSealStatus:
			status, err := s.mgr.GetSealStatus(req.SectorID)
			req.SealStatusReply <- core.Result[core.SealStatus]{Value: status, Err: err}

		case core.KindGetSealedSectors:
			req.SealedSectorsReply <- core.Ok(s.mgr.GetSealedSectors())

		case core.KindGetStagedSectors:
			req.StagedSectorsReply <- core.Ok(s.mgr.GetStagedSectors())

		case core.KindGetMaxUserBytesPerStagedSector:
			req.MaxBytesReply <- s.mgr.MaxUserBytes()

		case core.KindSealAllStagedSectors:
			err := s.mgr.SealAllStagedSectors(ctx)
			req.SealAllReply <- core.Result[struct{}]{Err: err}
			if isFatal(err) {
				return err
			}

		case core.KindRetrievePiece:
			s.mgr.RetrievePiece(req.RetrievePieceKey, req.RetrievePieceReply)

		case core.KindGeneratePoSt:
			out, err := s.mgr.GeneratePoSt(req.PoStCommRs, req.PoStChallengeSeed)
			req.PoStReply <- core.Result[core.PoStOutput]{Value: out, Err: err}

		case core.KindHandleSealResult:
			if err := s.mgr.HandleSealResult(ctx, req.SealResultSectorID, req.SealResult); err != nil {
				log.Errorw("fatal error handling seal result", "sector", req.SealResultSectorID, "err", err)
				return err
			}

		default:
			log.Errorw("unknown request kind", "kind", req.Kind)
		}
	}
}

func isFatal(err error) bool {
	return errors.Is(err, core.ErrStore) || errors.Is(err, core.ErrControlChannelBroken)
}
