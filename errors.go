package delayhandler

import (
	"github.com/pkg/errors"
)

// ErrDuplicateValue is returned by Insert when the value is already pending.
// The existing pending entry is left untouched.
var ErrDuplicateValue = errors.New("delayhandler: value is already pending")
