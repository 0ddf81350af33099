package inventory

import "errors"

// ErrCameraNotFound is returned when no inventory row matches.
var ErrCameraNotFound = errors.New("inventory: camera not found")
