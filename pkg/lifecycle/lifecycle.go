// Package lifecycle implements socket bind/unlink and signal handling
// (spec §4.6): best-effort stale-socket removal, AddressInUse detection,
// and a once-protected SIGINT handler.
package lifecycle

import (
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"clippyboard/pkg/logger"
)

// Listen best-effort removes any stale socket file at path, then binds an
// AF_UNIX listener there. If a listener already accepts connections at
// path, or bind fails because the address is already in use, the file is
// left untouched — another daemon owns it (spec §4.3 step 1-2).
func Listen(path string) (*net.UnixListener, error) {
	if probe, err := net.Dial("unix", path); err == nil {
		probe.Close()
		return nil, &AddressInUseError{Path: path, Underlying: syscall.EADDRINUSE}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove stale socket file")
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		if isAddressInUse(err) {
			return nil, &AddressInUseError{Path: path, Underlying: err}
		}
		return nil, err
	}
	return listener, nil
}

func isAddressInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// AddressInUseError signals that another daemon already owns the socket
// path. Callers must not unlink the path in this case (spec §4.6).
type AddressInUseError struct {
	Path       string
	Underlying error
}

func (e *AddressInUseError) Error() string {
	return "address already in use: " + e.Path
}

func (e *AddressInUseError) Unwrap() error {
	return e.Underlying
}

// unlinkOnce guards the socket cleanup so it runs at most once even if
// both the signal handler and a normal shutdown path race to clean up
// (spec §4.6 "a once-flag must be robust under re-entry").
type unlinkOnce struct {
	once sync.Once
	path string
}

// HandleSignals installs a SIGINT handler that unlinks the socket path
// exactly once and exits with status 130. It returns a cleanup function
// callers should invoke on a graceful shutdown, which shares the same
// once-guard so the unlink never runs twice.
func HandleSignals(socketPath string) (cleanup func()) {
	guard := &unlinkOnce{path: socketPath}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		<-sigCh
		guard.unlink()
		os.Exit(130)
	}()

	return guard.unlink
}

func (g *unlinkOnce) unlink() {
	g.once.Do(func() {
		if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", g.path).Msg("failed to unlink socket on shutdown")
		}
	})
}
