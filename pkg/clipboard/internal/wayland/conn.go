// Package wayland implements the compositor-facing half of the daemon: a
// hand-rolled ext-data-control-v1 client built directly on AF_UNIX,
// without cgo or a generated protocol binding, generalizing the pattern
// used by the teacher's zwlr-data-control client to multiple seats, a
// dynamic object table, and a poll-driven event loop (spec §4.4).
package wayland

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

var le = binary.LittleEndian

// conn is a buffered Wayland wire connection: one AF_UNIX socket, a
// pending-events byte buffer, and a queue of file descriptors received out
// of band via SCM_RIGHTS, matched to the events that carry them in order.
type conn struct {
	fd         int
	inBuf      []byte
	pendingFds []int
}

func dial(sockPath string) (*conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	addr := &unix.SockaddrUnix{Name: sockPath}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &conn{fd: fd}, nil
}

func (c *conn) close() {
	unix.Close(c.fd)
}

// setNonblock puts the connection fd in non-blocking mode, required
// before the poll-driven event loop can safely read without stalling
// (spec §4.4 initialisation step 5).
func (c *conn) setNonblock() error {
	return unix.SetNonblock(c.fd, true)
}

// sendMsg writes one Wayland request: a request_id, size<<16|opcode
// header followed by the positional argument bytes.
func (c *conn) sendMsg(objectID uint32, opcode uint16, args []byte) error {
	size := uint16(8 + len(args))
	buf := make([]byte, size)
	le.PutUint32(buf[0:], objectID)
	le.PutUint32(buf[4:], uint32(opcode)|uint32(size)<<16)
	copy(buf[8:], args)
	_, err := unix.Write(c.fd, buf)
	return err
}

// sendMsgWithFD is sendMsg plus one file descriptor passed out of band via
// SCM_RIGHTS, used for ext_data_control_offer_v1.receive's writer_fd
// argument (Wayland fd arguments never appear in the wire payload itself).
func (c *conn) sendMsgWithFD(objectID uint32, opcode uint16, args []byte, fd int) error {
	size := uint16(8 + len(args))
	buf := make([]byte, size)
	le.PutUint32(buf[0:], objectID)
	le.PutUint32(buf[4:], uint32(opcode)|uint32(size)<<16)
	copy(buf[8:], args)

	rights := unix.UnixRights(fd)
	return unix.Sendmsg(c.fd, buf, rights, nil, 0)
}

// readMsg returns the next complete event already buffered, reading more
// from the socket (and draining any SCM_RIGHTS ancillary data) as needed.
// fd is -1 when no descriptor accompanied this event.
func (c *conn) readMsg() (objectID uint32, opcode uint16, payload []byte, fd int, err error) {
	fd = -1
	for {
		if msg, ok := c.popBuffered(); ok {
			objectID, opcode, payload = msg.objectID, msg.opcode, msg.payload
			if len(c.pendingFds) > 0 {
				fd = c.pendingFds[0]
				c.pendingFds = c.pendingFds[1:]
			}
			return
		}

		buf := make([]byte, 4096)
		oob := make([]byte, unix.CmsgSpace(4*8))
		n, oobn, _, _, recvErr := unix.Recvmsg(c.fd, buf, oob, 0)
		if recvErr != nil {
			err = recvErr
			return
		}
		if n == 0 {
			err = fmt.Errorf("wayland: connection closed")
			return
		}
		c.inBuf = append(c.inBuf, buf[:n]...)

		if oobn > 0 {
			scms, parseErr := unix.ParseSocketControlMessage(oob[:oobn])
			if parseErr == nil {
				for _, scm := range scms {
					rights, parseErr := unix.ParseUnixRights(&scm)
					if parseErr == nil {
						c.pendingFds = append(c.pendingFds, rights...)
					}
				}
			}
		}
	}
}

type bufferedMsg struct {
	objectID uint32
	opcode   uint16
	payload  []byte
}

// popBuffered extracts one complete event from inBuf, if present.
func (c *conn) popBuffered() (bufferedMsg, bool) {
	if len(c.inBuf) < 8 {
		return bufferedMsg{}, false
	}
	sizeOpcode := le.Uint32(c.inBuf[4:8])
	size := int(sizeOpcode >> 16)
	if size < 8 || len(c.inBuf) < size {
		return bufferedMsg{}, false
	}
	msg := bufferedMsg{
		objectID: le.Uint32(c.inBuf[0:4]),
		opcode:   uint16(sizeOpcode & 0xffff),
		payload:  append([]byte(nil), c.inBuf[8:size]...),
	}
	c.inBuf = c.inBuf[size:]
	return msg, true
}
