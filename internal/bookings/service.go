package bookings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/photka-support-ai/internal/sessions"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

var bookingsTracer = otel.Tracer("photka.internal.bookings")

type requestStore interface {
	CreateRequest(ctx context.Context, userID string, in Intent) (*BookingRequest, error)
	HasPendingInstant(ctx context.Context, userID string, since time.Time) (bool, error)
}

// Handoff is the result of a user-triggered booking action.
type Handoff struct {
	Redirect string          `json:"redirect"`
	Booking  *BookingRequest `json:"booking,omitempty"`
}

// Service turns gate actions into booking requests.
type Service struct {
	repo   requestStore
	logger *logging.Logger
	now    func() time.Time
}

// NewService constructs a bookings service. Without a repository, Handoff only
// computes the redirect.
func NewService(repo *Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{logger: logger, now: time.Now}
	if repo != nil {
		s.repo = repo
	}
	return s
}

// Handoff validates the intent, enforces one instant booking in queue per user,
// records the request and returns where the client should navigate.
func (s *Service) Handoff(ctx context.Context, userID string, in Intent) (Handoff, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.handoff")
	defer span.End()
	span.SetAttributes(
		attribute.String("photka.session_type", string(in.SessionType)),
		attribute.String("photka.timing", string(in.Timing)),
	)

	if err := in.Validate(); err != nil {
		return Handoff{}, err
	}
	if userID == "" {
		return Handoff{}, errors.New("bookings: user id required")
	}
	out := Handoff{Redirect: Redirect(in)}
	if s.repo == nil {
		return out, nil
	}

	if in.Timing == sessions.TimingNow {
		pending, err := s.repo.HasPendingInstant(ctx, userID, s.now().Add(-PendingInstantWindow))
		if err != nil {
			span.RecordError(err)
			return Handoff{}, err
		}
		if pending {
			return Handoff{}, ErrInstantBookingPending
		}
	}

	booking, err := s.repo.CreateRequest(ctx, userID, in)
	if err != nil {
		span.RecordError(err)
		return Handoff{}, err
	}
	out.Booking = booking
	s.logger.Info("booking handoff recorded",
		"user_id", userID,
		"booking_id", booking.ID,
		"session_type", in.SessionType,
		"status", booking.Status,
	)
	return out, nil
}
