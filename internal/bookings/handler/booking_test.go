package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"slotly/pkg/config"
	apperrors "slotly/pkg/errors"
	"slotly/pkg/logger"
	"slotly/pkg/middleware"
	"slotly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockBookingService struct {
	createFunc     func(ctx context.Context, ownerID string, input *model.BookingInput) (*model.Booking, error)
	getByOwnerFunc func(ctx context.Context, ownerID string) ([]*model.Booking, error)
	deleteFunc     func(ctx context.Context, id string, ownerID string) error
}

func (m *mockBookingService) Create(ctx context.Context, ownerID string, input *model.BookingInput) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, ownerID, input)
	}
	return &model.Booking{ID: "65f000000000000000000001", OwnerID: ownerID}, nil
}

func (m *mockBookingService) GetByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	if m.getByOwnerFunc != nil {
		return m.getByOwnerFunc(ctx, ownerID)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingService) Delete(ctx context.Context, id string, ownerID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, ownerID)
	}
	return nil
}

func newTestHandler(svc *mockBookingService) *BookingHandler {
	log := logger.New(logger.Config{
		Level:   logger.ERROR,
		Format:  logger.JSON,
		Service: "test",
	})
	return &BookingHandler{
		service: svc,
		cfg:     &config.Config{Log: log},
		log:     log,
	}
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), middleware.OwnerIDKey, "owner-1")
	return req.WithContext(ctx)
}

func TestCreate_InvalidBody(t *testing.T) {
	handler := newTestHandler(&mockBookingService{})

	req := authedRequest(http.MethodPost, "/api/v1/bookings", "{not json")
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreate_PassesOwnerFromContext(t *testing.T) {
	var receivedOwner string
	handler := newTestHandler(&mockBookingService{
		createFunc: func(ctx context.Context, ownerID string, input *model.BookingInput) (*model.Booking, error) {
			receivedOwner = ownerID
			return &model.Booking{ID: "65f000000000000000000001", OwnerID: ownerID}, nil
		},
	})

	body := `{"title":"Team sync","start_time":"2026-03-09T10:00:00Z","end_time":"2026-03-09T11:00:00Z"}`
	req := authedRequest(http.MethodPost, "/api/v1/bookings", body)
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if receivedOwner != "owner-1" {
		t.Errorf("expected owner-1, got %q", receivedOwner)
	}
}

func TestCreate_ConflictStatus(t *testing.T) {
	handler := newTestHandler(&mockBookingService{
		createFunc: func(ctx context.Context, ownerID string, input *model.BookingInput) (*model.Booking, error) {
			return nil, apperrors.Conflict("This time slot conflicts with an existing booking")
		},
	})

	body := `{"title":"Team sync","start_time":"2026-03-09T10:00:00Z","end_time":"2026-03-09T11:00:00Z"}`
	req := authedRequest(http.MethodPost, "/api/v1/bookings", body)
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestList_ReturnsOwnerBookings(t *testing.T) {
	handler := newTestHandler(&mockBookingService{
		getByOwnerFunc: func(ctx context.Context, ownerID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "b1", OwnerID: ownerID, Title: "Team sync",
					StartTime: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
					EndTime:   time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)},
			}, nil
		},
	})

	req := authedRequest(http.MethodGet, "/api/v1/bookings", "")
	w := httptest.NewRecorder()

	handler.List(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Data []model.Booking `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "b1" {
		t.Errorf("unexpected payload: %+v", resp.Data)
	}
}

func TestDelete_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "success",
			serviceErr: nil,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "not found",
			serviceErr: apperrors.NotFoundWithID("Booking", "65f000000000000000000009"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "foreign booking",
			serviceErr: apperrors.Forbidden("You can only delete your own bookings"),
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&mockBookingService{
				deleteFunc: func(ctx context.Context, id string, ownerID string) error {
					return tt.serviceErr
				},
			})

			req := authedRequest(http.MethodDelete, "/api/v1/bookings/id/65f000000000000000000001", "")
			w := httptest.NewRecorder()

			handler.Delete(w, req, httprouter.Params{{Key: "id", Value: "65f000000000000000000001"}})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
