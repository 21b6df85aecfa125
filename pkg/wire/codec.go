// Package wire implements the local socket's framing (spec §4.2): a
// one-byte opcode request frame and a self-describing CBOR response frame
// for READ, using the same field tags on both ends of the connection.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"clippyboard/pkg/history"

	"github.com/fxamacker/cbor/v2"
)

// Opcode identifies the requested operation (spec §6).
type Opcode byte

const (
	OpRead  Opcode = 1
	OpCopy  Opcode = 2
	OpClear Opcode = 3
)

// Request is a decoded request frame. Id is only meaningful for OpCopy.
type Request struct {
	Op Opcode
	Id uint64
}

// ReadRequest reads one opcode byte, and for OpCopy the trailing 8-byte
// little-endian id, from r. A short read on the opcode byte itself is
// reported as io.EOF so callers can treat it as a benign disconnect rather
// than a protocol fault; a truncated id wraps io.ErrUnexpectedEOF.
func ReadRequest(r io.Reader) (Request, error) {
	var opByte [1]byte
	if _, err := io.ReadFull(r, opByte[:]); err != nil {
		return Request{}, err
	}

	req := Request{Op: Opcode(opByte[0])}
	if req.Op != OpCopy {
		return req, nil
	}

	var idBytes [8]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return Request{}, fmt.Errorf("reading copy id: %w", err)
	}
	req.Id = binary.LittleEndian.Uint64(idBytes[:])
	return req, nil
}

// WriteCopyRequest encodes a COPY request frame, used by clients (the
// picker) that issue requests rather than serve them.
func WriteCopyRequest(w io.Writer, id uint64) error {
	buf := make([]byte, 9)
	buf[0] = byte(OpCopy)
	binary.LittleEndian.PutUint64(buf[1:], id)
	_, err := w.Write(buf)
	return err
}

// WriteSimpleRequest encodes a no-payload request frame (READ or CLEAR).
func WriteSimpleRequest(w io.Writer, op Opcode) error {
	_, err := w.Write([]byte{byte(op)})
	return err
}

// EncodeSnapshot serializes a history snapshot for the READ response. The
// format is CBOR: self-describing, with stable field names (id, mime,
// data, created_time), so the picker can decode without sharing field
// numbers with the daemon.
func EncodeSnapshot(entries []history.Entry) ([]byte, error) {
	return cbor.Marshal(entries)
}

// DecodeSnapshot is the picker-side counterpart of EncodeSnapshot.
func DecodeSnapshot(data []byte) ([]history.Entry, error) {
	var entries []history.Entry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
