package buffon

import "errors"

// ErrInvalidParameter is fatal and can only surface at construction.
// Once a Driver exists, its parameters are valid for the whole run.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrExhausted is the soft signal that the needle budget is spent.
// Tick keeps returning the final snapshot with this error,
// callers check for it with errors.Is and stop driving.
var ErrExhausted = errors.New("needle budget exhausted")
