// Package pieceapi exposes the AddPiece and RetrievePiece requests over
// HTTP, adapted from the damocles manager's piece-store proxy
// (pkg/piecestore/proxy.go): GET retrieves a sealed piece's bytes by CID,
// PUT stages a new piece's bytes into a sector.
package pieceapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/ipfs-force-community/sectorbuilder/client"
	"github.com/ipfs-force-community/sectorbuilder/core"
	"github.com/ipfs-force-community/sectorbuilder/pkg/logging"
)

var log = logging.New("pieceapi")

// Proxy is an http.Handler over a single sector builder client.
type Proxy struct {
	client *client.Client
}

func NewProxy(c *client.Client) *Proxy {
	return &Proxy{client: c}
}

func (p *Proxy) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		p.handleGet(rw, req)
	case http.MethodPut:
		p.handlePut(rw, req)
	default:
		http.Error(rw, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (p *Proxy) handleGet(rw http.ResponseWriter, req *http.Request) {
	path := strings.Trim(req.URL.Path, "/ ")
	if _, err := cid.Decode(path); err != nil {
		http.Error(rw, fmt.Sprintf("cast %s to cid: %s", path, err), http.StatusBadRequest)
		return
	}

	data, err := p.client.RetrievePiece(req.Context(), path)
	if err != nil {
		p.writeError(rw, path, err)
		return
	}

	if _, err := rw.Write(data); err != nil {
		log.Warnw("writing piece response", "piece", path, "err", err)
	}
}

func (p *Proxy) handlePut(rw http.ResponseWriter, req *http.Request) {
	path := strings.Trim(req.URL.Path, "/ ")
	if _, err := cid.Decode(path); err != nil {
		http.Error(rw, fmt.Sprintf("cast %s to cid: %s", path, err), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, fmt.Sprintf("reading request body: %s", err), http.StatusBadRequest)
		return
	}

	id, err := p.client.AddPiece(req.Context(), path, data)
	if err != nil {
		p.writeError(rw, path, err)
		return
	}

	log.Infow("put piece data", "piece", path, "sector", id, "bytes", len(data))
	fmt.Fprintf(rw, "%d", id)
}

func (p *Proxy) writeError(rw http.ResponseWriter, piece string, err error) {
	switch {
	case isNotFound(err):
		http.Error(rw, err.Error(), http.StatusNotFound)
	case isCapacityExceeded(err):
		http.Error(rw, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		log.Errorw("piece request failed", "piece", piece, "err", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrPieceNotFound) || errors.Is(err, core.ErrSectorNotFound)
}

func isCapacityExceeded(err error) bool {
	return errors.Is(err, core.ErrCapacityExceeded)
}
