// Package clipboard wires the daemon's components together: construct the
// shared history and Selection Bridge, bind the local socket, spawn the
// Wayland worker, then run the IPC accept loop (spec §2 "Control Flow").
package clipboard

import (
	"context"

	"clippyboard/pkg/bridge"
	"clippyboard/pkg/clipboard/internal/wayland"
	"clippyboard/pkg/config"
	"clippyboard/pkg/errors"
	"clippyboard/pkg/history"
	"clippyboard/pkg/ipc"
	"clippyboard/pkg/lifecycle"
	"clippyboard/pkg/logger"
)

// Run builds every component from cfg and blocks until ctx is cancelled,
// the Wayland worker exits fatally, or the IPC listener is closed.
func Run(ctx context.Context, cfg *config.Config) error {
	store := history.NewStore(cfg.MaxHistoryByteSize, cfg.EntryOverhead)

	b, err := bridge.New(store)
	if err != nil {
		return errors.Fatal("creating the wakeup pipe", err)
	}
	defer b.Close()

	listener, err := lifecycle.Listen(cfg.SocketPath)
	if err != nil {
		return errors.Fatal("binding the local socket at "+cfg.SocketPath, err)
	}
	defer listener.Close()

	cleanup := lifecycle.HandleSignals(cfg.SocketPath)
	defer cleanup()

	logger.Info().Str("path", cfg.SocketPath).Msg("Listening on " + cfg.SocketPath)

	worker := wayland.New(wayland.Config{
		MaxEntrySize:   cfg.MaxEntrySize,
		MimePreference: cfg.MimePreference,
	}, b)

	workerErrCh := make(chan error, 1)
	go func() {
		workerErrCh <- worker.Run(ctx)
	}()

	server := ipc.New(listener, b)
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Serve()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-workerErrCh:
		return err
	case err := <-serverErrCh:
		return err
	}
}
