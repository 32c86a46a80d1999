package connections

import "errors"

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("connections: invalid configuration")
