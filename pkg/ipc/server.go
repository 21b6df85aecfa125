// Package ipc implements the Local IPC Server (spec §4.3): an AF_UNIX
// accept loop whose per-connection workers decode one request frame,
// apply it against the shared history and Selection Bridge, and reply
// only for READ.
package ipc

import (
	"errors"
	"io"
	"net"

	"clippyboard/pkg/bridge"
	"clippyboard/pkg/logger"
	"clippyboard/pkg/wire"
)

// Server accepts peers on a bound *net.UnixListener and dispatches their
// requests. Construction (binding, stale-socket removal) is the caller's
// responsibility (pkg/lifecycle), matching spec §4.3 step 1-2.
type Server struct {
	listener *net.UnixListener
	bridge   *bridge.Bridge
}

// New wraps an already-bound listener.
func New(listener *net.UnixListener, b *bridge.Bridge) *Server {
	return &Server{listener: listener, bridge: b}
}

// Serve runs the accept loop until the listener is closed. A per-worker
// fault is logged at warn level and never tears down the server (spec
// §4.3 "A worker fault is logged at warn level; it never tears down the
// server").
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn *net.UnixConn) {
	defer conn.Close()

	req, err := wire.ReadRequest(conn)
	if err != nil {
		if err == io.EOF {
			return // benign client disconnect (spec §4.3)
		}
		logger.Warn().Err(err).Msg("ipc worker fault reading request")
		return
	}

	switch req.Op {
	case wire.OpRead:
		s.handleRead(conn)
	case wire.OpCopy:
		s.handleCopy(req.Id)
	case wire.OpClear:
		s.handleClear()
	default:
		// Unknown opcode: silently ignored (spec §4.3).
	}
}

func (s *Server) handleRead(conn *net.UnixConn) {
	snapshot := s.bridge.Store.Snapshot()
	encoded, err := wire.EncodeSnapshot(snapshot)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode history snapshot")
		return
	}
	if _, err := conn.Write(encoded); err != nil {
		logger.Warn().Err(err).Msg("failed to write READ response")
	}
}

func (s *Server) handleCopy(id uint64) {
	entry, ok := s.bridge.Store.PromoteById(id)
	if !ok {
		logger.Warn().Uint64("id", id).Msg("COPY referenced an unknown entry id")
		return
	}
	s.bridge.SetLastCopiedItemID(entry.ID)
	s.bridge.QueuePaste(entry)
}

func (s *Server) handleClear() {
	s.bridge.Store.Clear()
}
