package calendar

import (
	"context"
	"errors"
	"net/http"
	"time"

	"slotly/pkg/logger"
	"slotly/pkg/model"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const primaryCalendarID = "primary"

// GoogleChecker checks the owner's primary Google Calendar for events that
// occupy the proposed slot.
type GoogleChecker struct {
	log *logger.Logger
}

func NewGoogleChecker(log *logger.Logger) *GoogleChecker {
	return &GoogleChecker{log: log}
}

func (g *GoogleChecker) Check(ctx context.Context, cred model.Credential, start, end time.Time) Result {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	})

	service, err := gcal.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return classifyFailure(err)
	}

	events, err := service.Events.List(primaryCalendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(start.UTC().Format(time.RFC3339)).
		TimeMax(end.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return classifyFailure(err)
	}

	if len(events.Items) == 0 {
		return Result{Outcome: OutcomeNoConflict}
	}

	conflicting := make([]model.ExternalEvent, 0, len(events.Items))
	for _, item := range events.Items {
		conflicting = append(conflicting, model.ExternalEvent{
			Summary:   item.Summary,
			StartTime: parseEventTime(item.Start),
			EndTime:   parseEventTime(item.End),
		})
	}

	g.log.Debug("Google Calendar reported busy slot",
		"event_count", len(conflicting),
		"start", start,
		"end", end,
	)

	return Result{Outcome: OutcomeConflict, Events: conflicting}
}

// parseEventTime handles both timed (dateTime) and all-day (date) events.
func parseEventTime(edt *gcal.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, edt.DateTime)
		return t
	}
	t, _ := time.Parse("2006-01-02", edt.Date)
	return t
}

// classifyFailure maps a provider error to an Indeterminate result. Expired
// credentials and missing permissions are distinguished from transport
// failures only for the diagnostic log; none of them block the booking.
func classifyFailure(err error) Result {
	reason := ReasonProviderError

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			reason = ReasonCredentialExpired
		case http.StatusForbidden:
			reason = ReasonPermissionDenied
		}
	}

	return Result{
		Outcome: OutcomeIndeterminate,
		Reason:  reason,
		Err:     err,
	}
}
