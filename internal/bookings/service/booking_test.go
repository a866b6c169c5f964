package service

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "slotly/internal/bookings/errors"
	"slotly/internal/bookings/validator"
	"slotly/internal/calendar"
	"slotly/pkg/config"
	mongotx "slotly/pkg/db/mongo"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/kafka"
	"slotly/pkg/logger"
	"slotly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

var testNow = time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 9, hour, min, 0, 0, time.UTC)
}

// --- Mocks in the function-field style ---

type mockBookingRepository struct {
	createFunc      func(ctx context.Context, booking *model.Booking) error
	findByIDFunc    func(ctx context.Context, id string) (*model.Booking, error)
	findByOwnerFunc func(ctx context.Context, ownerID string) ([]*model.Booking, error)
	deleteFunc      func(ctx context.Context, id string) error
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = "65f000000000000000000001"
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	if m.findByOwnerFunc != nil {
		return m.findByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error)
	deleted    []string
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

type mockCredentialSource struct {
	cred *model.Credential
	err  error
}

func (m *mockCredentialSource) GetCredential(ctx context.Context, ownerID string) (*model.Credential, error) {
	return m.cred, m.err
}

type mockChecker struct {
	result calendar.Result
	called bool
}

func (m *mockChecker) Check(ctx context.Context, cred model.Credential, start, end time.Time) calendar.Result {
	m.called = true
	return m.result
}

type mockPublisher struct {
	published []kafka.Message
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	return m.err
}

// --- Fixture ---

type fixture struct {
	repo      *mockBookingRepository
	locks     *mockLockRepository
	creds     *mockCredentialSource
	checker   *mockChecker
	publisher *mockPublisher
	service   *bookingService
}

func newFixture() *fixture {
	log := logger.New(logger.Config{Level: logger.ERROR, Format: logger.JSON, Service: "test"})
	cfg := &config.Config{
		Log:                  log,
		BookingLockTTL:       10 * time.Second,
		CalendarCheckTimeout: time.Second,
	}

	f := &fixture{
		repo:      &mockBookingRepository{},
		locks:     &mockLockRepository{},
		creds:     &mockCredentialSource{},
		checker:   &mockChecker{},
		publisher: &mockPublisher{},
	}
	f.service = &bookingService{
		repo:        f.repo,
		lockRepo:    f.locks,
		validator:   validator.NewBookingValidator(log),
		credentials: f.creds,
		external:    f.checker,
		events:      f.publisher,
		cfg:         cfg,
		now:         func() time.Time { return testNow },
	}
	return f
}

func input(startHour, startMin, endHour, endMin int) *model.BookingInput {
	return &model.BookingInput{
		Title:     "Team sync",
		StartTime: at(startHour, startMin),
		EndTime:   at(endHour, endMin),
	}
}

func reasonDetail(t *testing.T, err error) string {
	t.Helper()
	appErr := apperrors.AsAppError(err)
	if appErr.Details == nil {
		return ""
	}
	reason, _ := appErr.Details["reason"].(string)
	return reason
}

// --- Create: temporal checks ---

func TestCreate_InvalidRangeWinsOverPastBooking(t *testing.T) {
	f := newFixture()

	// Both reversed and in the past: the range check must reject first.
	in := &model.BookingInput{
		Title:     "Team sync",
		StartTime: at(8, 0),
		EndTime:   at(7, 0),
	}

	_, err := f.service.Create(context.Background(), "owner-1", in)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := reasonDetail(t, err); got != "invalid_range" {
		t.Errorf("expected invalid_range rejection, got %q (err: %v)", got, err)
	}
}

func TestCreate_ZeroLengthRangeRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 10, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := reasonDetail(t, err); got != "invalid_range" {
		t.Errorf("expected invalid_range rejection, got %q", got)
	}
}

func TestCreate_PastBookingRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "owner-1", input(7, 0, 8, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := reasonDetail(t, err); got != "past_booking" {
		t.Errorf("expected past_booking rejection, got %q", got)
	}
}

// --- Create: internal conflict ---

func TestCreate_InternalConflictRejected(t *testing.T) {
	f := newFixture()
	f.repo.findByOwnerFunc = func(ctx context.Context, ownerID string) ([]*model.Booking, error) {
		return []*model.Booking{
			{ID: "b1", OwnerID: ownerID, StartTime: at(10, 0), EndTime: at(11, 0)},
		}, nil
	}

	_, err := f.service.Create(context.Background(), "owner-1", input(10, 30, 11, 30))
	if err == nil {
		t.Fatal("expected an error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
	if f.checker.called {
		t.Error("external check must not run once the internal check rejects")
	}
}

func TestCreate_AdjacentSlotsApproved(t *testing.T) {
	f := newFixture()
	f.repo.findByOwnerFunc = func(ctx context.Context, ownerID string) ([]*model.Booking, error) {
		return []*model.Booking{
			{ID: "b1", OwnerID: ownerID, StartTime: at(10, 0), EndTime: at(11, 0)},
		}, nil
	}

	// Back-to-back after the existing booking.
	booking, err := f.service.Create(context.Background(), "owner-1", input(11, 0, 12, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected the created booking to carry an id")
	}
}

// --- Create: external check ---

func TestCreate_NoCredentialSkipsExternalCheck(t *testing.T) {
	f := newFixture()
	f.creds.cred = nil

	if _, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.checker.called {
		t.Error("external check must be skipped without a stored credential")
	}
}

func TestCreate_ExternalConflictRejectedWithSummaries(t *testing.T) {
	f := newFixture()
	f.creds.cred = &model.Credential{AccessToken: "tok"}
	f.checker.result = calendar.Result{
		Outcome: calendar.OutcomeConflict,
		Events: []model.ExternalEvent{
			{Summary: "Dentist", StartTime: at(10, 0), EndTime: at(10, 30)},
			{Summary: "Standup", StartTime: at(10, 30), EndTime: at(11, 0)},
		},
	}

	_, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
	want := "This time slot conflicts with calendar events: Dentist, Standup"
	if appErr.Message != want {
		t.Errorf("expected %q, got %q", want, appErr.Message)
	}
}

func TestCreate_ExternalConflictWithoutSummaries(t *testing.T) {
	f := newFixture()
	f.creds.cred = &model.Credential{AccessToken: "tok"}
	f.checker.result = calendar.Result{
		Outcome: calendar.OutcomeConflict,
		Events:  []model.ExternalEvent{{Summary: "  "}},
	}

	_, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "This time slot conflicts with calendar events: Unknown events"
	if got := apperrors.AsAppError(err).Message; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCreate_ExternalFailuresFailOpen(t *testing.T) {
	reasons := []calendar.FailureReason{
		calendar.ReasonCredentialExpired,
		calendar.ReasonPermissionDenied,
		calendar.ReasonProviderError,
	}

	for _, reason := range reasons {
		t.Run(string(reason), func(t *testing.T) {
			f := newFixture()
			f.creds.cred = &model.Credential{AccessToken: "tok"}
			f.checker.result = calendar.Result{
				Outcome: calendar.OutcomeIndeterminate,
				Reason:  reason,
				Err:     errors.New("provider unavailable"),
			}

			booking, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0))
			if err != nil {
				t.Fatalf("expected approval despite %s, got: %v", reason, err)
			}
			if booking == nil || booking.ID == "" {
				t.Error("expected the booking to be persisted")
			}
		})
	}
}

func TestCreate_CredentialLookupFailureFailOpen(t *testing.T) {
	f := newFixture()
	f.creds.err = errors.New("users collection unavailable")

	if _, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.checker.called {
		t.Error("external check must be skipped when the credential cannot be loaded")
	}
}

// --- Create: locking and events ---

func TestCreate_LockContention(t *testing.T) {
	f := newFixture()
	f.locks.createFunc = func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
		return nil, mongo.WriteException{
			WriteErrors: mongo.WriteErrors{{Code: 11000}},
		}
	}

	_, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
}

func TestCreate_LockReleasedAfterSuccess(t *testing.T) {
	f := newFixture()

	if _, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.locks.deleted) != 1 || f.locks.deleted[0] != "booking_lock_owner-1" {
		t.Errorf("expected the owner lock to be released, got %v", f.locks.deleted)
	}
}

func TestCreate_PublishesCreatedEvent(t *testing.T) {
	f := newFixture()

	if _, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.publisher.published))
	}
	if got := f.publisher.published[0].GetEventType(); got != eventBookingCreated {
		t.Errorf("expected %s, got %s", eventBookingCreated, got)
	}
}

func TestCreate_PublishFailureDoesNotBlock(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("brokers unreachable")

	if _, err := f.service.Create(context.Background(), "owner-1", input(10, 0, 11, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Delete ---

func TestDelete_NotFound(t *testing.T) {
	f := newFixture()

	err := f.service.Delete(context.Background(), "65f000000000000000000009", "owner-1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected %s, got %s", apperrors.CodeNotFound, appErr.Code)
	}
}

func TestDelete_ForbiddenForNonOwner(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, OwnerID: "owner-2"}, nil
	}

	deleteCalled := false
	f.repo.deleteFunc = func(ctx context.Context, id string) error {
		deleteCalled = true
		return nil
	}

	err := f.service.Delete(context.Background(), "65f000000000000000000001", "owner-1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeForbidden {
		t.Errorf("expected %s, got %s", apperrors.CodeForbidden, appErr.Code)
	}
	if deleteCalled {
		t.Error("delete must not reach the store for a foreign booking")
	}
}

func TestDelete_Success(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, OwnerID: "owner-1"}, nil
	}

	if err := f.service.Delete(context.Background(), "65f000000000000000000001", "owner-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.publisher.published))
	}
	if got := f.publisher.published[0].GetEventType(); got != eventBookingDeleted {
		t.Errorf("expected %s, got %s", eventBookingDeleted, got)
	}
}
