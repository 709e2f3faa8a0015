package worker

import (
	"errors"
	"os"
	"syscall"
)

// Writing to a pipe whose reader is gone fails with EPIPE, or EINVAL on some
// platforms; a pipe already closed on our side reports os.ErrClosed.
func isClosedPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrClosed)
}
