// Package bookings hands a user-confirmed booking intent from the support chat
// to the booking flow.
package bookings

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/photka-support-ai/internal/intent"
	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

const (
	StatusRequested = "requested"
	StatusScheduled = "scheduled"

	defaultDurationMin = 60
	// PendingInstantWindow is how long a requested instant booking blocks another one.
	PendingInstantWindow = 2 * time.Hour
)

var (
	ErrInvalidIntent         = errors.New("bookings: invalid booking intent")
	ErrInstantBookingPending = errors.New("bookings: an instant booking is already in queue")
)

// Intent is what a gate action carries into the booking flow.
type Intent struct {
	SessionType sessions.Type   `json:"session_type"`
	Timing      sessions.Timing `json:"timing"`
}

func (i Intent) Validate() error {
	if !i.SessionType.Valid() {
		return fmt.Errorf("%w: unknown session type %q", ErrInvalidIntent, i.SessionType)
	}
	if i.Timing != sessions.TimingNow && i.Timing != sessions.TimingLater {
		return fmt.Errorf("%w: timing must be now or later", ErrInvalidIntent)
	}
	return nil
}

// Status is the booking status a request starts in.
func (i Intent) Status() string {
	if i.Timing == sessions.TimingLater {
		return StatusScheduled
	}
	return StatusRequested
}

// Redirect is the booking page the client navigates to.
func Redirect(i Intent) string {
	return intent.BookingPath(i.SessionType, i.Timing)
}

// BookingRequest is a booking row created from a handoff.
type BookingRequest struct {
	ID          uuid.UUID     `json:"id"`
	UserID      string        `json:"user_id"`
	SessionType sessions.Type `json:"session_type"`
	Status      string        `json:"status"`
	DurationMin int           `json:"duration_min"`
	CreatedAt   time.Time     `json:"created_at"`
}
