package tripdesk

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures reported by the remote client.
type ErrorKind string

const (
	ErrorNetwork      ErrorKind = "network"
	ErrorUnauthorized ErrorKind = "unauthorized"
	ErrorValidation   ErrorKind = "validation"
	ErrorConflict     ErrorKind = "conflict"
	ErrorNotFound     ErrorKind = "not_found"
	ErrorServer       ErrorKind = "server"
	ErrorRequest      ErrorKind = "request"
)

// ClassifiedError is implemented by transport errors that carry a category and server text.
type ClassifiedError interface {
	error
	ErrorKind() ErrorKind
	ServerMessage() string
	FieldErrors() map[string][]string
}

// Notification is the toast shown after a mutation.
type Notification struct {
	Level   string              `json:"level"`
	Message string              `json:"message"`
	Kind    ErrorKind           `json:"kind,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// NotificationFor maps an error to user-facing text. Validation and conflict failures echo
// the server's message verbatim when it sent one.
func NotificationFor(err error, locale string) Notification {
	if err == nil {
		return Notification{Level: "success", Message: Message(MsgTransitionDone, locale)}
	}
	if errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrUnknownAction) {
		return Notification{Level: "warning", Message: Message(MsgErrIllegalAction, locale)}
	}
	var classified ClassifiedError
	if !errors.As(err, &classified) {
		return Notification{Level: "error", Message: Message(MsgErrGeneric, locale)}
	}
	n := Notification{Level: "error", Kind: classified.ErrorKind(), Fields: classified.FieldErrors()}
	server := strings.TrimSpace(classified.ServerMessage())
	switch classified.ErrorKind() {
	case ErrorNetwork:
		n.Message = Message(MsgErrNetwork, locale)
	case ErrorUnauthorized:
		n.Message = Message(MsgErrUnauthorized, locale)
	case ErrorValidation:
		n.Message = firstNonEmpty(server, Message(MsgErrValidation, locale))
	case ErrorConflict:
		n.Message = firstNonEmpty(server, Message(MsgErrConflict, locale))
	case ErrorNotFound:
		n.Message = Message(MsgErrNotFound, locale)
	case ErrorServer:
		n.Message = Message(MsgErrServer, locale)
	default:
		n.Message = firstNonEmpty(server, Message(MsgErrGeneric, locale))
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
