package worker

import "errors"

var ErrShutdownTimeout = errors.New("worker shutdown timed out")
