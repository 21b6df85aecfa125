package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"clippyboard/pkg/history"
)

func TestReadRequest_SimpleOpcodes(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
	}{
		{"read", OpRead},
		{"clear", OpClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.NewBuffer([]byte{byte(tt.op)})
			req, err := ReadRequest(buf)
			if err != nil {
				t.Fatalf("ReadRequest() error = %v", err)
			}
			if req.Op != tt.op {
				t.Errorf("Op = %v, want %v", req.Op, tt.op)
			}
		})
	}
}

func TestReadRequest_CopyWithId(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCopyRequest(&buf, 42); err != nil {
		t.Fatalf("WriteCopyRequest() error = %v", err)
	}

	req, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("ReadRequest() error = %v", err)
	}
	if req.Op != OpCopy {
		t.Errorf("Op = %v, want OpCopy", req.Op)
	}
	if req.Id != 42 {
		t.Errorf("Id = %d, want 42", req.Id)
	}
}

func TestReadRequest_ShortReadIsBenign(t *testing.T) {
	_, err := ReadRequest(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestReadRequest_TruncatedCopyIdIsUnexpectedEOF(t *testing.T) {
	buf := bytes.NewBuffer([]byte{byte(OpCopy), 1, 2, 3})
	_, err := ReadRequest(buf)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadRequest() error = %v, want io.ErrUnexpectedEOF for a truncated id", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	entries := []history.Entry{
		{ID: 1, Mime: "text/plain", Data: []byte("hello"), CreatedTime: now},
		{ID: 2, Mime: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}, CreatedTime: now},
	}

	encoded, err := EncodeSnapshot(entries)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}

	decoded, err := DecodeSnapshot(encoded)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}

	if len(decoded) != len(entries) {
		t.Fatalf("len(decoded) = %d, want %d", len(decoded), len(entries))
	}
	for i := range entries {
		if decoded[i].ID != entries[i].ID {
			t.Errorf("decoded[%d].ID = %d, want %d", i, decoded[i].ID, entries[i].ID)
		}
		if decoded[i].Mime != entries[i].Mime {
			t.Errorf("decoded[%d].Mime = %q, want %q", i, decoded[i].Mime, entries[i].Mime)
		}
		if !bytes.Equal(decoded[i].Data, entries[i].Data) {
			t.Errorf("decoded[%d].Data = %v, want %v", i, decoded[i].Data, entries[i].Data)
		}
		if !decoded[i].CreatedTime.Equal(entries[i].CreatedTime) {
			t.Errorf("decoded[%d].CreatedTime = %v, want %v", i, decoded[i].CreatedTime, entries[i].CreatedTime)
		}
	}
}

func TestEncodeSnapshot_Empty(t *testing.T) {
	encoded, err := EncodeSnapshot(nil)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	decoded, err := DecodeSnapshot(encoded)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("len(decoded) = %d, want 0", len(decoded))
	}
}
