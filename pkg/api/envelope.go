package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the upstream response wrapper {status, code, message, data}.
type Envelope struct {
	Status  bool                `json:"status"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// unwrap returns the payload of an enveloped body, or the body itself when no envelope is
// present. The envelope is returned so callers can check its status flag.
func unwrap(body []byte) (payload json.RawMessage, env *Envelope, err error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil, nil
	}
	if body[0] != '{' {
		return body, nil, nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, nil, fmt.Errorf("api: decode response: %w", err)
	}
	_, hasStatus := keys["status"]
	_, hasCode := keys["code"]
	_, hasData := keys["data"]
	_, hasPage := keys["current_page"]
	if hasPage || !hasData || !(hasStatus || hasCode) {
		return body, nil, nil
	}
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, nil, fmt.Errorf("api: decode envelope: %w", err)
	}
	return e.Data, &e, nil
}

// errorBody extracts message and field errors from a failure body of any shape.
func errorBody(body []byte) (string, map[string][]string) {
	var e struct {
		Message string              `json:"message"`
		Error   string              `json:"error"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return string(bytes.TrimSpace(body)), nil
	}
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}
	return msg, e.Errors
}
