package launcher

import (
	"errors"
	"strconv"
)

// ErrEnvironmentBusy is returned when another launcher holds the
// environment lock.
var ErrEnvironmentBusy = errors.New("environment is in use by another covgen process")

// ExitError carries the generator's non-zero exit code so the launcher
// can exit with the same status.
type ExitError struct {
	Code int
}

// Error implements error.
func (e *ExitError) Error() string {
	return "coverage generator exited with code " + strconv.Itoa(e.Code)
}
