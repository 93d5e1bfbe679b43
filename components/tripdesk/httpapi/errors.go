package httpapi

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// StatusFor maps an operation error to the HTTP status the dashboard responds with.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var unknown *tripdesk.UnknownKindError
	if errors.As(err, &unknown) || errors.Is(err, tripdesk.ErrRecordNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, tripdesk.ErrIllegalTransition) || errors.Is(err, tripdesk.ErrUnknownAction) {
		return http.StatusConflict
	}
	var classified tripdesk.ClassifiedError
	if errors.As(err, &classified) {
		switch classified.ErrorKind() {
		case tripdesk.ErrorValidation:
			return http.StatusUnprocessableEntity
		case tripdesk.ErrorConflict:
			return http.StatusConflict
		case tripdesk.ErrorNotFound:
			return http.StatusNotFound
		case tripdesk.ErrorUnauthorized:
			return http.StatusUnauthorized
		case tripdesk.ErrorNetwork, tripdesk.ErrorServer:
			return http.StatusBadGateway
		default:
			return http.StatusBadRequest
		}
	}
	if errors.Is(err, errNotConfigured) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// ErrorBody is the JSON error payload. Notification carries the localized toast.
type ErrorBody struct {
	Error        string                `json:"error"`
	Notification tripdesk.Notification `json:"notification"`
}

// NewErrorBody builds the payload for err in locale.
func NewErrorBody(err error, locale string) ErrorBody {
	return ErrorBody{Error: err.Error(), Notification: tripdesk.NotificationFor(err, locale)}
}
