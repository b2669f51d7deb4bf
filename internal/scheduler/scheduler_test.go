package scheduler_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/internal/manager"
	"github.com/ipfs-force-community/sectorbuilder/internal/scheduler"
)

const testPiece = "QmR8BauakNcBa3RbE4nbQu76PDiJgoQgz8AJdhJuiU4TAw"

type stubStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newStubStore() *stubStore { return &stubStore{data: map[string][]byte{}} }

func (s *stubStore) MaxUnsealedBytesPerSector() uint64 { return 1024 }
func (s *stubStore) NewSectorAccess(id core.SectorID) string {
	return fmt.Sprintf("staged/%d", id)
}

func (s *stubStore) WritePiece(_ context.Context, access string, offset uint64, r io.Reader, size uint64) error {
	buf, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[access] = append(s.data[access], buf...)
	return nil
}

func (s *stubStore) Seal(_ context.Context, access string, _ []core.Piece) (string, [32]byte, [32]byte, []byte, error) {
	return "sealed/" + access, [32]byte{1}, [32]byte{2}, []byte("proof"), nil
}

func (s *stubStore) Unseal(_ context.Context, _ string, _ core.Piece) ([]byte, error) {
	return []byte("bytes"), nil
}

type stubSnapshotStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newStubSnapshotStore() *stubSnapshotStore { return &stubSnapshotStore{data: map[string][]byte{}} }

func (s *stubSnapshotStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubSnapshotStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

type stubSealerPool struct {
	mu   sync.Mutex
	jobs int
}

func (p *stubSealerPool) Seal(_ core.SealJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs++
	return nil
}
func (p *stubSealerPool) Unseal(_ core.UnsealJob) error { return nil }
func (p *stubSealerPool) Close()                        {}

type stubProofGenerator struct{}

func (stubProofGenerator) GeneratePoSt(_ [32]byte, parts []core.PoStInputPart) (core.PoStOutput, error) {
	return core.PoStOutput{Proof: []byte("proof")}, nil
}

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	input := make(chan core.Request, 16)
	mgr, err := manager.Load(
		context.Background(),
		manager.Config{MaxNumStagedSectors: 2},
		core.ProverID{1},
		100,
		newStubStore(),
		newStubSnapshotStore(),
		&stubSealerPool{},
		stubProofGenerator{},
		input,
	)
	require.NoError(t, err)

	return scheduler.New(input, mgr)
}

// Run dispatches a GetMaxUserBytesPerStagedSector request and returns nil
// once a Shutdown is received.
func TestRunRespondsAndShutsDownCleanly(t *testing.T) {
	sched := newTestScheduler(t)

	errC := make(chan error, 1)
	go func() { errC <- sched.Run(context.Background()) }()

	req, reply := core.NewGetMaxUserBytesRequest()
	sched.Input() <- req
	select {
	case got := <-reply:
		require.EqualValues(t, 1024, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}

	sched.Input() <- core.NewShutdownRequest()

	select {
	case err := <-errC:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
}

// Requests are dispatched strictly in the order they are enqueued.
func TestRunDispatchesInFIFOOrder(t *testing.T) {
	sched := newTestScheduler(t)

	errC := make(chan error, 1)
	go func() { errC <- sched.Run(context.Background()) }()

	var replies []chan core.Result[core.SectorID]
	for i := 0; i < 5; i++ {
		req, reply := core.NewAddPieceRequest(testPiece, []byte{byte(i)})
		replies = append(replies, reply)
		sched.Input() <- req
	}

	var ids []core.SectorID
	for _, r := range replies {
		select {
		case res := <-r:
			require.NoError(t, res.Err)
			ids = append(ids, res.Value)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for reply")
		}
	}

	// Every single-byte piece fits in sector 101 (capacity 1024), so every
	// AddPiece should resolve to the same, already-open sector.
	for _, id := range ids {
		require.EqualValues(t, 101, id)
	}

	sched.Input() <- core.NewShutdownRequest()
	require.NoError(t, <-errC)
}

// A closed input channel is treated as a broken control channel, matching
// the fatal-error contract documented on Run.
func TestRunReturnsErrorWhenInputChannelCloses(t *testing.T) {
	input := make(chan core.Request)
	mgr, err := manager.Load(
		context.Background(),
		manager.Config{MaxNumStagedSectors: 2},
		core.ProverID{1},
		100,
		newStubStore(),
		newStubSnapshotStore(),
		&stubSealerPool{},
		stubProofGenerator{},
		input,
	)
	require.NoError(t, err)

	sched := scheduler.New(input, mgr)

	errC := make(chan error, 1)
	go func() { errC <- sched.Run(context.Background()) }()

	close(input)

	select {
	case err := <-errC:
		require.ErrorIs(t, err, core.ErrControlChannelBroken)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
}
