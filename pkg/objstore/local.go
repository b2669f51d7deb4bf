package objstore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
	"lukechampine.com/blake3"

	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
)

var log = logging.New("objstore")

// Local is a filesystem-backed core.SectorStore, built on afero so the
// same code exercises both a real disk (afero.NewOsFs) and an in-memory
// filesystem (afero.NewMemMapFs) in tests.
type Local struct {
	fs   afero.Fs
	root string
	cfg  Config
}

var _ core.SectorStore = (*Local)(nil)

// NewLocal roots a Local sector store at dir on the given filesystem.
func NewLocal(fs afero.Fs, dir string, cfg Config) (*Local, error) {
	if err := fs.MkdirAll(filepath.Join(dir, "staged"), 0o755); err != nil {
		return nil, xerrors.Errorf("creating staged dir: %w", err)
	}
	if err := fs.MkdirAll(filepath.Join(dir, "sealed"), 0o755); err != nil {
		return nil, xerrors.Errorf("creating sealed dir: %w", err)
	}

	return &Local{fs: fs, root: dir, cfg: cfg}, nil
}

func (l *Local) MaxUnsealedBytesPerSector() uint64 {
	return l.cfg.MaxUnsealedBytesPerSector
}

func (l *Local) NewSectorAccess(sectorID core.SectorID) string {
	return filepath.Join("staged", fmt.Sprintf("s-%d-%s", sectorID, uuid.New().String()))
}

func (l *Local) WritePiece(ctx context.Context, access string, offset uint64, r io.Reader, size uint64) error {
	f, err := l.fs.OpenFile(filepath.Join(l.root, access), fileOpenFlags, 0o644)
	if err != nil {
		return xerrors.Errorf("opening sector access %s: %w", access, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return xerrors.Errorf("seeking sector access %s: %w", access, err)
	}

	n, err := io.CopyN(f, r, int64(size))
	if err != nil {
		return xerrors.Errorf("writing piece into %s: %w", access, err)
	}
	if uint64(n) != size {
		return xerrors.Errorf("short write into %s: wrote %d of %d bytes", access, n, size)
	}

	log.Debugw("wrote piece", "access", access, "offset", offset, "size", size)
	return nil
}

func (l *Local) Seal(ctx context.Context, access string, pieces []core.Piece) (string, [32]byte, [32]byte, []byte, error) {
	raw, err := afero.ReadFile(l.fs, filepath.Join(l.root, access))
	if err != nil {
		return "", [32]byte{}, [32]byte{}, nil, xerrors.Errorf("reading staged sector %s: %w", access, err)
	}

	sealedAccess := filepath.Join("sealed", filepath.Base(access))
	if err := afero.WriteFile(l.fs, filepath.Join(l.root, sealedAccess), raw, 0o644); err != nil {
		return "", [32]byte{}, [32]byte{}, nil, xerrors.Errorf("writing sealed sector %s: %w", sealedAccess, err)
	}

	commD := blake3.Sum256(raw)

	layout := append([]byte(nil), raw...)
	for _, p := range pieces {
		layout = append(layout, []byte(p.PieceKey)...)
	}
	commR := blake3.Sum256(layout)

	proof := blake3.Sum256(append(commR[:], commD[:]...))

	log.Infow("sealed sector", "access", access, "sealed", sealedAccess, "pieces", len(pieces))
	return sealedAccess, commR, commD, proof[:], nil
}

func (l *Local) Unseal(ctx context.Context, sealedAccess string, piece core.Piece) ([]byte, error) {
	f, err := l.fs.Open(filepath.Join(l.root, sealedAccess))
	if err != nil {
		return nil, xerrors.Errorf("opening sealed sector %s: %w", sealedAccess, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(piece.OffsetInSector), io.SeekStart); err != nil {
		return nil, xerrors.Errorf("seeking sealed sector %s: %w", sealedAccess, err)
	}

	buf := make([]byte, piece.NumBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, xerrors.Errorf("reading piece %s from %s: %w", piece.PieceKey, sealedAccess, err)
	}

	return buf, nil
}
