package domain

import "errors"

// ErrNotFound is returned by stores when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")
