package scheduler

import (
	"errors"

	"github.com/aeronjay/MediRemind/internal/recurrence"
)

var (
	// ErrPermissionDenied means the notification capability is not granted.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrInvalidTime means the reminder time is malformed or out of range.
	ErrInvalidTime = recurrence.ErrInvalidTime
	// ErrNoTriggers means expansion or submission produced no outstanding trigger.
	ErrNoTriggers = errors.New("no triggers scheduled")
)
