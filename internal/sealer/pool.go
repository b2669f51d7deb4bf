// Package sealer implements a concrete, in-process sealer pool: a
// fixed-size goroutine pool that runs Seal and Unseal jobs against a
// core.SectorStore and feeds completions back to the scheduler, modeled on
// extern/sector-storage/localworker.go's worker-dispatch idiom.
package sealer

import (
	"context"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
)

var log = logging.New("sealer")

type job struct {
	seal   *core.SealJob
	unseal *core.UnsealJob
}

// Pool is a local, in-process core.SealerPool.
type Pool struct {
	store core.SectorStore
	jobs  chan job
	done  chan struct{}
}

var _ core.SealerPool = (*Pool)(nil)

// New starts numWorkers goroutines pulling from a bounded job queue. Workers
// never touch SectorBuilderState: they only see the cloned metadata handed
// to them in each job, plus the caller-supplied reply channels.
func New(store core.SectorStore, numWorkers, queueDepth int) *Pool {
	p := &Pool{
		store: store,
		jobs:  make(chan job, queueDepth),
		done:  make(chan struct{}),
	}

	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	for {
		select {
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			if j.seal != nil {
				p.runSeal(j.seal)
			} else {
				p.runUnseal(j.unseal)
			}
		case <-p.done:
			return
		}
	}
}

func (p *Pool) Seal(sj core.SealJob) error {
	select {
	case p.jobs <- job{seal: &sj}:
		return nil
	case <-p.done:
		return core.ErrControlChannelBroken
	}
}

func (p *Pool) Unseal(uj core.UnsealJob) error {
	select {
	case p.jobs <- job{unseal: &uj}:
		return nil
	case <-p.done:
		return core.ErrControlChannelBroken
	}
}

func (p *Pool) Close() {
	close(p.done)
}

func (p *Pool) runSeal(sj *core.SealJob) {
	ctx := context.Background()
	sector := sj.StagedSector

	sealedAccess, commR, commD, proof, err := p.store.Seal(ctx, sector.SectorAccess, sector.Pieces)

	var result core.Result[*core.SealedSector]
	if err != nil {
		log.Warnw("seal failed", "sector", sector.SectorID, "err", err)
		result = core.Err[*core.SealedSector](err)
	} else {
		result = core.Ok(&core.SealedSector{
			SectorID:     sector.SectorID,
			SectorAccess: sealedAccess,
			Pieces:       append([]core.Piece(nil), sector.Pieces...),
			CommR:        commR,
			CommD:        commD,
			Proof:        proof,
		})
	}

	req := core.NewHandleSealResultRequest(sector.SectorID, result)
	sj.ReplyTo <- req
}

func (p *Pool) runUnseal(uj *core.UnsealJob) {
	ctx := context.Background()

	piece, ok := uj.SealedSector.HasPiece(uj.PieceKey)
	if !ok {
		uj.Reply <- core.Err[[]byte](core.ErrPieceNotFound)
		return
	}

	bytes, err := p.store.Unseal(ctx, uj.SealedSector.SectorAccess, piece)
	if err != nil {
		uj.Reply <- core.Err[[]byte](err)
		return
	}

	uj.Reply <- core.Ok(bytes)
}
