package monitor

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a fetch succeeds without producing a snapshot.
var ErrNoData = errors.New("no data")

// FetchError is a per-address failure: the address is skipped for the cycle
// and its cached snapshot is kept.
type FetchError struct {
	Address string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Address, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError is a per-notification failure. It is never retried in the same cycle.
type SendError struct {
	UserID  int64
	Address string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %d (%s): %v", e.UserID, e.Address, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// CycleError is a failure spanning a whole pass. The scheduler backs off
// for the error cooldown and keeps running.
type CycleError struct {
	Err error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("monitor cycle: %v", e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
