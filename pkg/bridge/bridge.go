// Package bridge implements the Selection Bridge (spec §4.5): the single
// shared-state block passed between IPC workers and the Wayland worker.
// Every mutable field is either atomic or guarded by its own narrow mutex;
// no caller ever needs to hold two of this package's locks at once.
package bridge

import (
	"sync"
	"sync/atomic"

	"clippyboard/pkg/history"

	"golang.org/x/sys/unix"
)

// noCopyYet is the sentinel last-copied-item id before any COPY has been
// served, mirroring the original daemon's u64::MAX initialisation.
const noCopyYet = ^uint64(0)

// Bridge is the cross-thread handoff point. An IPC worker mutates the
// store under its own mutex, drops the lock, then calls QueuePaste (or
// SetLastCopiedItemID) and writes the wakeup byte; the Wayland worker
// reacts on its next poll wakeup and re-acquires locks on its own terms.
type Bridge struct {
	Store *history.Store

	lastCopiedItemID atomic.Uint64

	wakeupRead  int
	wakeupWrite int

	pasteMu    sync.Mutex
	pasteQueue []history.Entry
}

// New builds a Bridge over store, creating the anonymous wakeup pipe used
// to break the Wayland worker out of poll (spec §4.4/§4.5).
func New(store *history.Store) (*Bridge, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		return nil, err
	}

	b := &Bridge{
		Store:       store,
		wakeupRead:  fds[0],
		wakeupWrite: fds[1],
	}
	b.lastCopiedItemID.Store(noCopyYet)
	return b, nil
}

// WakeupReadFd is the descriptor the Wayland worker polls alongside its
// connection fd.
func (b *Bridge) WakeupReadFd() int {
	return b.wakeupRead
}

// WriteWakeup writes a single byte to the wakeup pipe; its value is
// irrelevant (spec §4.3 "The wakeup byte is the sole signalling
// mechanism"). Safe to call from any goroutine.
func (b *Bridge) WriteWakeup() {
	unix.Write(b.wakeupWrite, []byte{0})
}

// DrainWakeup reads and discards every byte currently queued on the
// wakeup pipe, called by the Wayland worker right after poll reports it
// readable so a coalesced burst of signals collapses into one wakeup.
func (b *Bridge) DrainWakeup() {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(b.wakeupRead, buf)
		if n <= 0 || err != nil {
			return
		}
	}
}

// QueuePaste enqueues an entry for the Wayland worker to offer to every
// known device, and signals the wakeup pipe (spec §4.3 COPY handling).
func (b *Bridge) QueuePaste(entry history.Entry) {
	b.pasteMu.Lock()
	b.pasteQueue = append(b.pasteQueue, entry)
	b.pasteMu.Unlock()
	b.WriteWakeup()
}

// DrainPasteQueue atomically takes and clears the pending paste queue.
// Called only from the Wayland worker goroutine.
func (b *Bridge) DrainPasteQueue() []history.Entry {
	b.pasteMu.Lock()
	entries := b.pasteQueue
	b.pasteQueue = nil
	b.pasteMu.Unlock()
	return entries
}

// LastCopiedItemID returns the id of the entry most recently promoted by
// a COPY request, or noCopyYet if none has happened.
func (b *Bridge) LastCopiedItemID() uint64 {
	return b.lastCopiedItemID.Load()
}

// SetLastCopiedItemID records id as the most recently promoted entry,
// consulted by the self-copy-suppression check in history.Store.Append.
func (b *Bridge) SetLastCopiedItemID(id uint64) {
	b.lastCopiedItemID.Store(id)
}

// Close releases the wakeup pipe's descriptors.
func (b *Bridge) Close() {
	unix.Close(b.wakeupRead)
	unix.Close(b.wakeupWrite)
}
