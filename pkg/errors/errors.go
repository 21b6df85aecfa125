// Package errors implements the daemon's error taxonomy (see spec §7):
// StartupFatal / StartupAddressInUse / PeerTransient / ProtocolTransient /
// InternalInvariantViolation. Only the two Startup kinds ever reach
// Handle/os.Exit; the others are logged in place by the caller and the
// affected goroutine returns.
package errors

import (
	"fmt"
	"os"

	"clippyboard/pkg/logger"

	"github.com/fatih/color"
)

type ExitCode int

const (
	ExitOK      ExitCode = 0
	ExitGeneral ExitCode = 1
	ExitSIGINT  ExitCode = 130
)

// Error is a startup-fatal condition: missing runtime directory, a bind
// failure that isn't AddressInUse, no compositor connection, missing
// ext-data-control-v1, or a duplicate manager global (spec §7).
type Error struct {
	Code       ExitCode
	Message    string
	Underlying error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Fatal builds a StartupFatal error wrapping err, with exit code ExitGeneral.
func Fatal(message string, err error) *Error {
	return &Error{Code: ExitGeneral, Message: message, Underlying: err}
}

// FatalWithSuggestion builds a StartupFatal error that also prints a
// remediation hint (used for the missing ext-data-control-v1 case, which
// points users at their compositor's support matrix).
func FatalWithSuggestion(message string, suggestion string) *Error {
	return &Error{Code: ExitGeneral, Message: message, Suggestion: suggestion}
}

// Handle prints a colorized message to stderr and terminates the process.
// It is only ever called from main, at a startup-fatal call site — no
// worker goroutine may call os.Exit directly (spec §7 propagation policy).
func Handle(err error) {
	if err == nil {
		return
	}

	exitCode := ExitGeneral
	message := err.Error()
	suggestion := ""

	if e, ok := err.(*Error); ok {
		exitCode = e.Code
		message = e.Message
		suggestion = e.Suggestion
		if e.Underlying != nil {
			logger.Error().Err(e.Underlying).Msg(e.Message)
		} else {
			logger.Error().Msg(e.Message)
		}
	} else {
		logger.Error().Msg(message)
	}

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(os.Stderr)
	red.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, message)
	if suggestion != "" {
		yellow.Fprint(os.Stderr, "Suggestion: ")
		fmt.Fprintln(os.Stderr, suggestion)
	}
	fmt.Fprintln(os.Stderr)

	os.Exit(int(exitCode))
}
