package wayland

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clippyboard/pkg/bridge"
	"clippyboard/pkg/errors"
	"clippyboard/pkg/history"
	"clippyboard/pkg/logger"

	"golang.org/x/sys/unix"
)

// Config carries the worker's tunables, sourced from pkg/config.
type Config struct {
	MaxEntrySize   uint64
	MimePreference []string
}

// pasteSource is a data source this daemon created to serve a paste
// request; it stays alive until the compositor cancels it.
type pasteSource struct {
	entry history.Entry
}

// Worker owns the compositor connection and is the only goroutine that
// touches the registry-derived object tables (spec §5 "Shared-resource
// policy"): devices, deferred seats, in-flight offers, and paste sources.
type Worker struct {
	cfg    Config
	bridge *bridge.Bridge

	conn *conn
	ids  *idAllocator

	managerID   uint32
	managerSeen bool

	deferredSeats []uint32 // seat object ids awaiting get_data_device
	devices       map[uint32]*deviceState
	offers        map[uint32]*offerState
	sources       map[uint32]*pasteSource

	doneOffersMu sync.Mutex
	doneOffers   []uint32
}

// New builds a Worker; Run performs the actual compositor connection.
func New(cfg Config, b *bridge.Bridge) *Worker {
	return &Worker{
		cfg:     cfg,
		bridge:  b,
		ids:     newIDAllocator(),
		devices: make(map[uint32]*deviceState),
		offers:  make(map[uint32]*offerState),
		sources: make(map[uint32]*pasteSource),
	}
}

// Run connects to the compositor, performs global discovery, and services
// the event loop until ctx is cancelled or the connection drops. Failure
// to connect or to find ext_data_control_manager_v1 is fatal (spec §4.4
// "Initialisation").
func (w *Worker) Run(ctx context.Context) error {
	c, err := connectDisplay()
	if err != nil {
		return errors.Fatal("connecting to the Wayland compositor", err)
	}
	w.conn = c
	defer c.close()

	if err := w.discoverGlobals(); err != nil {
		return err
	}
	if !w.managerSeen {
		return errors.FatalWithSuggestion(
			"ext_data_control_manager_v1 not advertised by the compositor",
			"check whether your compositor supports ext-data-control-v1 (or its wlr-data-control predecessor)",
		)
	}
	w.drainDeferredSeats()

	if err := w.conn.setNonblock(); err != nil {
		return errors.Fatal("setting the Wayland connection fd non-blocking", err)
	}

	logger.Info().Msg("Wayland worker ready")
	return w.eventLoop(ctx)
}

func connectDisplay() (*conn, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	path := display
	if !filepath.IsAbs(display) {
		path = filepath.Join(runtimeDir, display)
	}
	return dial(path)
}

// discoverGlobals binds the registry, performs one roundtrip, and records
// every wl_seat and the (singular) ext_data_control_manager_v1 global seen
// along the way, per spec §4.4 steps 2-3.
func (w *Worker) discoverGlobals() error {
	if err := w.conn.sendMsg(idDisplay, opDisplayGetRegistry, encodeUint32(idRegistry)); err != nil {
		return errors.Fatal("binding the Wayland registry", err)
	}

	callbackID := w.ids.alloc()
	if err := w.conn.sendMsg(idDisplay, opDisplaySync, encodeUint32(callbackID)); err != nil {
		return errors.Fatal("issuing the initial roundtrip", err)
	}

	for {
		objectID, opcode, payload, fd, err := w.conn.readMsg()
		if err != nil {
			return errors.Fatal("reading from the Wayland compositor during startup", err)
		}
		closeIfFD(fd)

		switch {
		case objectID == idRegistry && opcode == evRegistryGlobal:
			if err := w.handleGlobal(payload); err != nil {
				return err
			}
		case objectID == callbackID && opcode == evCallbackDone:
			return nil
		}
	}
}

func (w *Worker) handleGlobal(payload []byte) error {
	if len(payload) < 4 {
		return nil
	}
	name := le.Uint32(payload[:4])
	iface, _, err := decodeString(payload[4:])
	if err != nil {
		return nil
	}

	switch iface {
	case ifaceSeat:
		seatID := w.ids.alloc()
		if err := w.conn.sendMsg(idRegistry, opRegistryBind, concat(
			encodeUint32(name),
			encodeString(ifaceSeat),
			encodeUint32(seatBindVersion),
			encodeUint32(seatID),
		)); err != nil {
			logger.Warn().Err(err).Msg("failed to bind wl_seat")
			return nil
		}
		w.deferredSeats = append(w.deferredSeats, seatID)

	case ifaceDataControlManager:
		if w.managerSeen {
			return errors.Fatal("ext_data_control_manager_v1 advertised twice", fmt.Errorf("protocol violation"))
		}
		w.managerSeen = true
		w.managerID = w.ids.alloc()
		if err := w.conn.sendMsg(idRegistry, opRegistryBind, concat(
			encodeUint32(name),
			encodeString(ifaceDataControlManager),
			encodeUint32(managerBindVersion),
			encodeUint32(w.managerID),
		)); err != nil {
			return errors.Fatal("binding ext_data_control_manager_v1", err)
		}
	}
	return nil
}

// drainDeferredSeats creates a data-control device for every seat seen
// before (or during) discovery, now that the manager is known (spec §4.4
// step 3's deferred-list behavior).
func (w *Worker) drainDeferredSeats() {
	for _, seatID := range w.deferredSeats {
		deviceID := w.ids.alloc()
		if err := w.conn.sendMsg(w.managerID, opManagerGetDataDevice, concat(
			encodeUint32(deviceID),
			encodeUint32(seatID),
		)); err != nil {
			logger.Warn().Err(err).Msg("failed to create data-control device for seat")
			continue
		}
		w.devices[deviceID] = &deviceState{id: deviceID, seatID: seatID}
	}
	w.deferredSeats = nil
}

// eventLoop blocks in poll on exactly two descriptors (spec §4.4 "Event
// loop"): the Wayland connection fd and the wakeup-pipe read end.
func (w *Worker) eventLoop(ctx context.Context) error {
	wakeupFd := w.bridge.WakeupReadFd()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fds := []unix.PollFd{
			{Fd: int32(w.conn.fd), Events: unix.POLLIN},
			{Fd: int32(wakeupFd), Events: unix.POLLIN},
		}

		n, err := unix.Poll(fds, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("polling wayland/wakeup fds: %w", err)
		}
		if n == 0 {
			continue
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			if err := w.drainConn(); err != nil {
				if fatal, ok := err.(*errors.Error); ok {
					return fatal
				}
				logger.Warn().Err(err).Msg("Wayland connection closed")
				return nil
			}
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			w.bridge.DrainWakeup()
			w.processPasteQueue()
			w.processDoneOffers()
		}
	}
}

// drainConn dispatches every event currently readable without blocking.
func (w *Worker) drainConn() error {
	for {
		objectID, opcode, payload, fd, err := w.conn.readMsg()
		if err != nil {
			if err == unix.EAGAIN {
				return nil
			}
			return err
		}
		if err := w.dispatch(objectID, opcode, payload, fd); err != nil {
			return err
		}
	}
}

func (w *Worker) dispatch(objectID uint32, opcode uint16, payload []byte, fd int) error {
	switch {
	case objectID == idRegistry && opcode == evRegistryGlobal:
		err := w.handleGlobal(payload)
		closeIfFD(fd)
		if err != nil {
			return err
		}

	case objectID == idRegistry && opcode == evRegistryGlobalRemove:
		closeIfFD(fd)

	case w.offers[objectID] != nil:
		w.dispatchOffer(objectID, opcode, payload)
		closeIfFD(fd)

	case w.isDevice(objectID):
		w.dispatchDevice(objectID, opcode, payload)
		closeIfFD(fd)

	case w.sources[objectID] != nil:
		w.dispatchSource(objectID, opcode, payload, fd)

	default:
		closeIfFD(fd)
	}
	return nil
}

func (w *Worker) isDevice(id uint32) bool {
	_, ok := w.devices[id]
	return ok
}

func (w *Worker) dispatchOffer(offerID uint32, opcode uint16, payload []byte) {
	offer := w.offers[offerID]
	if opcode == evOfferOffer {
		mime, _, err := decodeString(payload)
		if err == nil {
			offer.addMime(mime)
		}
	}
}

func (w *Worker) dispatchDevice(deviceID uint32, opcode uint16, payload []byte) {
	switch opcode {
	case evDeviceDataOffer:
		if len(payload) < 4 {
			return
		}
		offerID := le.Uint32(payload[:4])
		o := newOffer(offerID)
		o.createdTime = time.Now()
		w.offers[offerID] = o

	case evDeviceSelection:
		offerID, has := decodeNullableID(payload)
		if !has {
			return
		}
		offer, ok := w.offers[offerID]
		if !ok {
			return
		}
		w.handleSelection(offer)

	case evDevicePrimarySelection:
		offerID, has := decodeNullableID(payload)
		if !has {
			return
		}
		// Primary selection is acknowledged but never captured (Non-goal).
		if offer, ok := w.offers[offerID]; ok {
			w.destroyOfferNow(offer.id)
		}

	case evDeviceFinished:
		logger.Warn().Uint32("device", deviceID).Msg("data-control device finished")
	}
}

func decodeNullableID(payload []byte) (uint32, bool) {
	if len(payload) < 4 {
		return 0, false
	}
	id := le.Uint32(payload[:4])
	return id, id != 0
}

// handleSelection implements spec §4.4 "Selection handling (capture path)".
func (w *Worker) handleSelection(offer *offerState) {
	mime, ok := offer.pickMime(w.cfg.MimePreference)
	if !ok {
		logger.Warn().Uint32("offer", offer.id).Msg("no preferred MIME type in offer, abandoning")
		w.destroyOfferNow(offer.id)
		return
	}

	secretRequired := offer.hasSecretHint()

	mainRead, err := w.requestReceive(offer.id, mime)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to receive clipboard offer")
		w.destroyOfferNow(offer.id)
		return
	}

	var secretRead *os.File
	if secretRequired {
		secretRead, err = w.requestReceive(offer.id, secretHintMime)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to receive secret-hint check, proceeding without it")
			secretRequired = false
		}
	}

	go w.completeCapture(offer, mime, mainRead, secretRead, secretRequired)
}

func (w *Worker) requestReceive(offerID uint32, mime string) (*os.File, error) {
	r, wr, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	defer wr.Close()

	if err := w.conn.sendMsgWithFD(offerID, opOfferReceive, encodeString(mime), int(wr.Fd())); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// completeCapture runs on its own goroutine (the "reader thread" of spec
// §4.4/§5): it blocks on pipe I/O and, at the end, takes only the history
// mutex via Store.Append.
func (w *Worker) completeCapture(offer *offerState, mime string, mainRead, secretRead *os.File, secretRequired bool) {
	defer mainRead.Close()
	data := readCapped(mainRead, w.cfg.MaxEntrySize)

	if secretRequired {
		defer secretRead.Close()
		// One byte past the sentinel's length, so a longer payload that
		// merely starts with the sentinel does not compare equal.
		secretData := readCapped(secretRead, uint64(len(secretSentinel))+1)
		if bytes.Equal(secretData, secretSentinel) {
			logger.Warn().Msg("discarding a captured secret (password-manager hint matched)")
			w.enqueueOfferDone(offer.id)
			return
		}
	}

	_, outcome := w.bridge.Store.Append(mime, data, offer.createdTime, w.bridge.LastCopiedItemID())
	if outcome != history.Stored {
		logger.Debug().Str("outcome", outcome.String()).Msg("capture suppressed")
	}
	w.enqueueOfferDone(offer.id)
}

// readCapped reads f to EOF, discarding bytes past limit (spec §4.4 step 5,
// §6 "Items larger than the entry cap are truncated to the cap").
func readCapped(f *os.File, limit uint64) []byte {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			if uint64(len(buf)) < limit {
				room := limit - uint64(len(buf))
				take := uint64(n)
				if take > room {
					take = room
				}
				buf = append(buf, chunk[:take]...)
			}
		}
		if err != nil {
			return buf
		}
	}
}

// enqueueOfferDone hands an offer id needing wire-level destruction back
// to the worker goroutine, since only it may write to the connection fd.
// It reuses the bridge's wakeup pipe so the worker still polls exactly two
// descriptors.
func (w *Worker) enqueueOfferDone(offerID uint32) {
	w.doneOffersMu.Lock()
	w.doneOffers = append(w.doneOffers, offerID)
	w.doneOffersMu.Unlock()
	w.bridge.WriteWakeup()
}

func (w *Worker) processDoneOffers() {
	w.doneOffersMu.Lock()
	ids := w.doneOffers
	w.doneOffers = nil
	w.doneOffersMu.Unlock()

	for _, id := range ids {
		w.destroyOfferNow(id)
	}
}

func (w *Worker) destroyOfferNow(offerID uint32) {
	if _, ok := w.offers[offerID]; !ok {
		return
	}
	if err := w.conn.sendMsg(offerID, opOfferDestroy, nil); err != nil {
		logger.Warn().Err(err).Msg("failed to destroy offer")
	}
	delete(w.offers, offerID)
}

func (w *Worker) dispatchSource(sourceID uint32, opcode uint16, payload []byte, fd int) {
	src := w.sources[sourceID]
	switch opcode {
	case evSourceSend:
		mime, _, err := decodeString(payload)
		if err != nil || fd < 0 {
			closeIfFD(fd)
			return
		}
		go w.serveSend(src, mime, fd)

	case evSourceCancelled:
		closeIfFD(fd)
		delete(w.sources, sourceID)
		if err := w.conn.sendMsg(sourceID, opSourceDestroy, nil); err != nil {
			logger.Warn().Err(err).Msg("failed to destroy cancelled source")
		}
	default:
		closeIfFD(fd)
	}
}

// serveSend is the "writer thread" of spec §4.4 "Paste (send) handling".
func (w *Worker) serveSend(src *pasteSource, mime string, fd int) {
	f := os.NewFile(uintptr(fd), "data-control-send")
	defer f.Close()

	data := src.entry.Data
	if _, err := f.Write(data); err != nil {
		logger.Warn().Err(err).Str("mime", mime).Msg("failed to write paste payload")
	}
}

// textCompatibilityMimes is the broader set advertised for text/plain
// payloads (spec §4.4 "Paste request from IPC").
var textCompatibilityMimes = []string{
	"text/plain;charset=utf-8",
	"text/plain",
	"STRING",
	"UTF8_STRING",
	"TEXT",
}

// processPasteQueue implements spec §4.4 "Paste request from IPC": for
// every queued entry and every known device, create a source and call
// set_selection.
func (w *Worker) processPasteQueue() {
	entries := w.bridge.DrainPasteQueue()
	for _, entry := range entries {
		mimes := []string{entry.Mime}
		if entry.Mime == "text/plain" {
			mimes = textCompatibilityMimes
		}
		for _, device := range w.devices {
			w.createSourceAndSetSelection(device, entry, mimes)
		}
	}
}

func (w *Worker) createSourceAndSetSelection(device *deviceState, entry history.Entry, mimes []string) {
	sourceID := w.ids.alloc()
	if err := w.conn.sendMsg(w.managerID, opManagerCreateDataSource, encodeUint32(sourceID)); err != nil {
		logger.Warn().Err(err).Msg("failed to create data source for paste")
		return
	}
	for _, mime := range mimes {
		if err := w.conn.sendMsg(sourceID, opSourceOffer, encodeString(mime)); err != nil {
			logger.Warn().Err(err).Msg("failed to offer MIME on paste source")
			return
		}
	}
	w.sources[sourceID] = &pasteSource{entry: entry}

	if err := w.conn.sendMsg(device.id, opDeviceSetSelection, encodeUint32(sourceID)); err != nil {
		logger.Warn().Err(err).Msg("failed to set selection")
	}
}

func closeIfFD(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}
