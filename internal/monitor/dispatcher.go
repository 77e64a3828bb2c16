package monitor

import (
	"context"
	"time"

	"hyper_monitor/internal/models"
)

// Sender delivers one text message to a user.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// DeliveryResult is the outcome of one (user, event) notification.
type DeliveryResult struct {
	UserID  int64
	Address string
	Event   models.Event
	At      time.Time
	Err     error // *SendError when delivery failed
}

func (d DeliveryResult) Delivered() bool { return d.Err == nil }

// Dispatcher formats events and sends them one message per (user, event).
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	now     func() time.Time
}

func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		now:     time.Now,
	}
}

// Dispatch sends a single notification. Failures are reported in the result,
// never returned or retried.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, addressLabel string, ev models.Event) DeliveryResult {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res := DeliveryResult{
		UserID:  userID,
		Address: addressLabel,
		Event:   ev,
	}
	if err := d.sender.Send(ctx, userID, FormatEvent(addressLabel, ev)); err != nil {
		res.Err = &SendError{UserID: userID, Address: addressLabel, Err: err}
	}
	res.At = d.now()
	return res
}
