package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotly/internal/bookings/conflict"
	bookingserrors "slotly/internal/bookings/errors"
	"slotly/internal/bookings/repository"
	"slotly/internal/bookings/validator"
	"slotly/internal/calendar"
	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/kafka"
	"slotly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	eventBookingCreated = "booking.created"
	eventBookingDeleted = "booking.deleted"

	unknownEventsFallback = "Unknown events"
)

type BookingService interface {
	Create(ctx context.Context, ownerID string, input *model.BookingInput) (*model.Booking, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error)
	Delete(ctx context.Context, id string, ownerID string) error
}

// CredentialSource yields the owner's stored external-calendar credential,
// or nil when the owner never linked a calendar.
type CredentialSource interface {
	GetCredential(ctx context.Context, ownerID string) (*model.Credential, error)
}

// EventPublisher emits booking lifecycle events. Publishing is best-effort;
// the booking outcome never depends on it.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type bookingService struct {
	repo        repository.BookingRepository
	lockRepo    repository.BookingLockRepository
	validator   *validator.BookingValidator
	credentials CredentialSource
	external    calendar.ConflictChecker
	events      EventPublisher
	cfg         *config.Config
	now         func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	bookingValidator *validator.BookingValidator,
	credentials CredentialSource,
	external calendar.ConflictChecker,
	events EventPublisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		lockRepo:    lockRepo,
		validator:   bookingValidator,
		credentials: credentials,
		external:    external,
		events:      events,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Create validates a proposed booking and persists it when approved. The
// checks run in a fixed order and fail fast: structural validation, then
// temporal sanity, then internal overlap against the owner's stored
// bookings, then the advisory external-calendar check. An advisory
// per-owner lock is held across the read-then-write so two concurrent
// requests cannot both pass the overlap check.
func (s *bookingService) Create(ctx context.Context, ownerID string, input *model.BookingInput) (*model.Booking, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("Owner ID cannot be empty")
	}

	if err := s.validator.Validate(input); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "owner_id", ownerID, "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.checkTemporal(input); err != nil {
		return nil, err
	}

	lockID, err := s.acquireOwnerLock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseOwnerLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	if err := s.checkInternalConflict(ctx, ownerID, input); err != nil {
		return nil, err
	}

	if err := s.checkExternalConflict(ctx, ownerID, input); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(input.Title),
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.publishEvent(ctx, eventBookingCreated, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"owner_id", ownerID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)
	return booking, nil
}

func (s *bookingService) GetByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("Owner ID cannot be empty")
	}

	bookings, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, nil
}

// Delete removes a booking after verifying it exists and belongs to the
// requester. Existence is checked before ownership, so probing a foreign id
// yields NotFound only when the booking is genuinely absent.
func (s *bookingService) Delete(ctx context.Context, id string, ownerID string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if ownerID == "" {
		return apperrors.InvalidInput("Owner ID cannot be empty")
	}

	var deleted *model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booking, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			if errors.Is(err, bookingserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid booking ID format")
			}
			return apperrors.Internal("Failed to retrieve booking", err)
		}

		if booking.OwnerID != ownerID {
			return apperrors.Forbidden("You can only delete your own bookings")
		}

		if err := s.repo.Delete(sessCtx, id); err != nil {
			return apperrors.Internal("Failed to delete booking", err)
		}

		deleted = booking
		return nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, eventBookingDeleted, deleted)

	s.cfg.Log.Info("Booking deleted successfully", "id", id, "owner_id", ownerID)
	return nil
}

// --- Validation steps ---

// checkTemporal enforces start < end and no retroactive bookings, in that
// order: a reversed range is reported as InvalidRange even when the start
// is also in the past.
func (s *bookingService) checkTemporal(input *model.BookingInput) error {
	if !input.StartTime.Before(input.EndTime) {
		return apperrors.InvalidInput("Start time must be before end time").
			WithDetails(map[string]any{"reason": "invalid_range"})
	}
	if input.StartTime.Before(s.now()) {
		return apperrors.InvalidInput("Cannot create bookings in the past").
			WithDetails(map[string]any{"reason": "past_booking"})
	}
	return nil
}

func (s *bookingService) checkInternalConflict(ctx context.Context, ownerID string, input *model.BookingInput) error {
	existing, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	intervals := make([]conflict.Interval, len(existing))
	for i, b := range existing {
		intervals[i] = conflict.Interval{Start: b.StartTime, End: b.EndTime}
	}

	proposed := conflict.Interval{Start: input.StartTime, End: input.EndTime}
	if conflict.AnyOverlap(intervals, proposed) {
		return apperrors.Conflict("This time slot conflicts with an existing booking")
	}

	return nil
}

// checkExternalConflict consults the owner's linked calendar when one is
// linked. Only a positive conflict blocks the booking; every failure mode
// of the provider resolves to approval with an operator-visible warning.
func (s *bookingService) checkExternalConflict(ctx context.Context, ownerID string, input *model.BookingInput) error {
	cred, err := s.credentials.GetCredential(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Warn("Could not load external calendar credential; skipping external check",
			"owner_id", ownerID,
			"error", err,
		)
		return nil
	}
	if cred == nil {
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.cfg.CalendarCheckTimeout)
	defer cancel()

	result := s.external.Check(checkCtx, *cred, input.StartTime, input.EndTime)
	switch result.Outcome {
	case calendar.OutcomeConflict:
		return apperrors.Conflict(fmt.Sprintf(
			"This time slot conflicts with calendar events: %s",
			summarizeEvents(result.Events),
		))
	case calendar.OutcomeIndeterminate:
		s.cfg.Log.Warn("External calendar check could not be completed; booking proceeds without it",
			"owner_id", ownerID,
			"reason", result.Reason,
			"error", result.Err,
		)
	}

	return nil
}

func summarizeEvents(events []model.ExternalEvent) string {
	var summaries []string
	for _, e := range events {
		if strings.TrimSpace(e.Summary) != "" {
			summaries = append(summaries, e.Summary)
		}
	}
	if len(summaries) == 0 {
		return unknownEventsFallback
	}
	return strings.Join(summaries, ", ")
}

// --- Locking ---

// acquireOwnerLock serializes booking creation per owner for the duration
// of the read-then-write. The TTL bounds lock leakage when a release fails.
func (s *bookingService) acquireOwnerLock(ctx context.Context, ownerID string) (string, error) {
	lockID := fmt.Sprintf("booking_lock_%s", ownerID)

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: s.now().Add(s.cfg.BookingLockTTL),
	}

	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another booking for this account is being processed. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseOwnerLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

// --- Events ---

type bookingEvent struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (s *bookingService) publishEvent(ctx context.Context, eventType string, booking *model.Booking) {
	if s.events == nil || booking == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(booking.OwnerID).
		WithValue(bookingEvent{
			ID:        booking.ID,
			OwnerID:   booking.OwnerID,
			Title:     booking.Title,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
		}).
		WithEventType(eventType).
		WithSource("bookings").
		Build()

	if err := s.events.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}
