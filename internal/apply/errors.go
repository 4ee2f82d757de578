package apply

import "errors"

// ErrValidation means a required submission field was missing. Raised before
// any upload or insert is attempted.
var ErrValidation = errors.New("apply: validation failed")
