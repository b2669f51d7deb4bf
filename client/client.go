// Package client provides the caller-facing half of the request protocol:
// helpers that build a Request, enqueue it on the scheduler's input
// channel, and block for its reply.
package client

import (
	"context"

	"github.com/ipfs-force-community/sectorbuilder/core"
)

// Client is a thin handle producers (CLI commands, an RPC server) use to
// submit Requests to a running scheduler.
type Client struct {
	input chan<- core.Request
}

func New(input chan<- core.Request) *Client {
	return &Client{input: input}
}

// enqueue sends req on the input channel, returning ctx.Err() if ctx is done
// before the send completes.
func enqueue(ctx context.Context, input chan<- core.Request, req core.Request) error {
	select {
	case input <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await blocks for a single reply. If ctx is done first it returns
// core.ErrCoordinatorShutDown, whatever the reason ctx ended; callers that
// want that error to mean a scheduler shutdown pass a context tied to the
// scheduler's lifetime.
func await[T any](ctx context.Context, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, core.ErrCoordinatorShutDown
	}
}

func (c *Client) AddPiece(ctx context.Context, key string, data []byte) (core.SectorID, error) {
	req, reply := core.NewAddPieceRequest(key, data)
	if err := enqueue(ctx, c.input, req); err != nil {
		return 0, err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return 0, err
	}
	return res.Value, res.Err
}

func (c *Client) GetSealStatus(ctx context.Context, id core.SectorID) (core.SealStatus, error) {
	req, reply := core.NewGetSealStatusRequest(id)
	if err := enqueue(ctx, c.input, req); err != nil {
		return core.SealStatus{}, err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return core.SealStatus{}, err
	}
	return res.Value, res.Err
}

func (c *Client) GetSealedSectors(ctx context.Context) ([]*core.SealedSector, error) {
	req, reply := core.NewGetSealedSectorsRequest()
	if err := enqueue(ctx, c.input, req); err != nil {
		return nil, err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return nil, err
	}
	return res.Value, res.Err
}

func (c *Client) GetStagedSectors(ctx context.Context) ([]*core.StagedSector, error) {
	req, reply := core.NewGetStagedSectorsRequest()
	if err := enqueue(ctx, c.input, req); err != nil {
		return nil, err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return nil, err
	}
	return res.Value, res.Err
}

func (c *Client) GetMaxUserBytesPerStagedSector(ctx context.Context) (uint64, error) {
	req, reply := core.NewGetMaxUserBytesRequest()
	if err := enqueue(ctx, c.input, req); err != nil {
		return 0, err
	}
	return await(ctx, reply)
}

func (c *Client) SealAllStagedSectors(ctx context.Context) error {
	req, reply := core.NewSealAllStagedSectorsRequest()
	if err := enqueue(ctx, c.input, req); err != nil {
		return err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return err
	}
	return res.Err
}

func (c *Client) RetrievePiece(ctx context.Context, key string) ([]byte, error) {
	req, reply := core.NewRetrievePieceRequest(key)
	if err := enqueue(ctx, c.input, req); err != nil {
		return nil, err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return nil, err
	}
	return res.Value, res.Err
}

func (c *Client) GeneratePoSt(ctx context.Context, commRs [][32]byte, challengeSeed [32]byte) (core.PoStOutput, error) {
	req, reply := core.NewGeneratePoStRequest(commRs, challengeSeed)
	if err := enqueue(ctx, c.input, req); err != nil {
		return core.PoStOutput{}, err
	}
	res, err := await(ctx, reply)
	if err != nil {
		return core.PoStOutput{}, err
	}
	return res.Value, res.Err
}

// Shutdown enqueues a Shutdown request. It does not wait for the scheduler
// to actually terminate. Requests queued ahead of it are still dispatched
// first; requests enqueued after it are never dispatched.
func (c *Client) Shutdown(ctx context.Context) error {
	return enqueue(ctx, c.input, core.NewShutdownRequest())
}
