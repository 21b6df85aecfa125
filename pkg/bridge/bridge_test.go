package bridge

import (
	"testing"
	"time"

	"clippyboard/pkg/history"

	"golang.org/x/sys/unix"
)

func TestNew_LastCopiedItemIDStartsAtSentinel(t *testing.T) {
	b, err := New(history.NewStore(1024, 8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	if got := b.LastCopiedItemID(); got != noCopyYet {
		t.Errorf("LastCopiedItemID() = %d, want %d", got, noCopyYet)
	}
}

func TestSetLastCopiedItemID(t *testing.T) {
	b, err := New(history.NewStore(1024, 8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	b.SetLastCopiedItemID(7)
	if got := b.LastCopiedItemID(); got != 7 {
		t.Errorf("LastCopiedItemID() = %d, want 7", got)
	}
}

func TestQueuePasteSignalsWakeup(t *testing.T) {
	b, err := New(history.NewStore(1024, 8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	entry := history.Entry{ID: 1, Mime: "text/plain", Data: []byte("hi"), CreatedTime: time.Now()}
	b.QueuePaste(entry)

	fds := []unix.PollFd{{Fd: int32(b.WakeupReadFd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 1000)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if n != 1 || fds[0].Revents&unix.POLLIN == 0 {
		t.Fatal("wakeup pipe did not become readable after QueuePaste")
	}

	drained := b.DrainPasteQueue()
	if len(drained) != 1 || drained[0].ID != entry.ID {
		t.Errorf("DrainPasteQueue() = %+v, want one entry with id %d", drained, entry.ID)
	}

	// A second drain must return nothing: the queue was consumed.
	if again := b.DrainPasteQueue(); len(again) != 0 {
		t.Errorf("second DrainPasteQueue() = %+v, want empty", again)
	}
}

func TestDrainWakeupCoalescesMultipleSignals(t *testing.T) {
	b, err := New(history.NewStore(1024, 8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	b.WriteWakeup()
	b.WriteWakeup()
	b.WriteWakeup()

	b.DrainWakeup()

	fds := []unix.PollFd{{Fd: int32(b.WakeupReadFd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 50)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if n != 0 {
		t.Error("wakeup pipe still readable after DrainWakeup")
	}
}
