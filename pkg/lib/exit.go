package lib

import (
	"errors"
	"fmt"
	"os"

	"geo-tools/pkg/logger"
)

// ExitError carries a process exit status. An ExitError with a nil Err exits
// quietly, for commands that already printed their diagnostics.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitStatus is the exit status for err: 0 for nil, the code of an
// *ExitError, else 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// Exit prints the error and exits the program with its exit status.
func Exit(err error) {
	code := ExitStatus(err)
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	}
	logger.Debug("exiting", "code", code)
	os.Exit(code)
}
