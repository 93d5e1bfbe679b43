package tripdesk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// PayloadValidator checks create payloads before they are sent upstream.
type PayloadValidator interface {
	Validate(kind ResourceKind, payload map[string]any) error
}

type noopPayloadValidator struct{}

func (noopPayloadValidator) Validate(ResourceKind, map[string]any) error { return nil }

// JSONSchemaValidator compiles per-kind schemas lazily and validates payloads against them.
// Kinds without a schema pass.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	schemas  map[ResourceKind]map[string]any
	compiled map[ResourceKind]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator. A nil schemas map uses DefaultSchemas.
func NewJSONSchemaValidator(schemas map[ResourceKind]map[string]any) *JSONSchemaValidator {
	if schemas == nil {
		schemas = DefaultSchemas()
	}
	return &JSONSchemaValidator{
		schemas:  schemas,
		compiled: make(map[ResourceKind]*jsonschema.Schema),
	}
}

// Validate implements PayloadValidator.
func (v *JSONSchemaValidator) Validate(kind ResourceKind, payload map[string]any) error {
	schema, err := v.schemaFor(kind)
	if err != nil || schema == nil {
		return err
	}
	normalized := map[string]any{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("tripdesk: marshal %s payload: %w", kind, err)
		}
		if err := json.Unmarshal(data, &normalized); err != nil {
			return fmt.Errorf("tripdesk: normalize %s payload: %w", kind, err)
		}
	}
	if err := schema.Validate(normalized); err != nil {
		return &PayloadError{Kind: kind, cause: err}
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(kind ResourceKind) (*jsonschema.Schema, error) {
	v.mu.RLock()
	compiled, ok := v.compiled[kind]
	raw, hasRaw := v.schemas[kind]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}
	if !hasRaw {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("tripdesk: marshal schema %s: %w", kind, err)
	}
	compiler := jsonschema.NewCompiler()
	name := string(kind) + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("tripdesk: load schema %s: %w", kind, err)
	}
	compiled, err = compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("tripdesk: compile schema %s: %w", kind, err)
	}
	v.mu.Lock()
	v.compiled[kind] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// PayloadError reports a payload that failed schema validation. It classifies as a
// validation error so notifications treat it like a server-side 422.
type PayloadError struct {
	Kind  ResourceKind
	cause error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("tripdesk: %s payload failed validation: %v", e.Kind, e.cause)
}

func (e *PayloadError) Unwrap() error { return e.cause }

// ErrorKind implements ClassifiedError.
func (e *PayloadError) ErrorKind() ErrorKind { return ErrorValidation }

// ServerMessage implements ClassifiedError.
func (e *PayloadError) ServerMessage() string { return e.cause.Error() }

// FieldErrors implements ClassifiedError. Leaf schema failures are keyed by the JSON
// pointer of the offending field; object level failures use "_".
func (e *PayloadError) FieldErrors() map[string][]string {
	var verr *jsonschema.ValidationError
	if !errors.As(e.cause, &verr) {
		return nil
	}
	out := map[string][]string{}
	collectFieldErrors(verr, out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectFieldErrors(verr *jsonschema.ValidationError, out map[string][]string) {
	if len(verr.Causes) == 0 {
		key := strings.TrimPrefix(verr.InstanceLocation, "/")
		if key == "" {
			key = "_"
		}
		out[key] = append(out[key], verr.Message)
		return
	}
	for _, cause := range verr.Causes {
		collectFieldErrors(cause, out)
	}
}

func requiredObject(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": props,
	}
}

var (
	nonEmptyString = map[string]any{"type": "string", "minLength": 1}
	positiveNumber = map[string]any{"type": "number", "exclusiveMinimum": 0}
	positiveInt    = map[string]any{"type": "integer", "minimum": 1}
	stringList     = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
)

// DefaultSchemas returns the create payload schemas for every kind.
func DefaultSchemas() map[ResourceKind]map[string]any {
	return map[ResourceKind]map[string]any{
		KindBookings: requiredObject([]string{"customer_name", "trip_name", "seats"}, map[string]any{
			"customer_name":  nonEmptyString,
			"customer_phone": map[string]any{"type": "string"},
			"trip_name":      nonEmptyString,
			"seats":          positiveInt,
			"total":          map[string]any{"type": "number", "minimum": 0},
		}),
		KindBuses: requiredObject([]string{"plate_number", "model", "capacity"}, map[string]any{
			"plate_number": nonEmptyString,
			"model":        nonEmptyString,
			"capacity":     positiveInt,
			"features":     stringList,
		}),
		KindCampaigns: requiredObject([]string{"title", "discount"}, map[string]any{
			"title":    nonEmptyString,
			"discount": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		}),
		KindPackages: requiredObject([]string{"name", "nights", "price"}, map[string]any{
			"name":     nonEmptyString,
			"nights":   positiveInt,
			"price":    positiveNumber,
			"cities":   stringList,
			"features": stringList,
		}),
		KindPayments: requiredObject([]string{"booking_id", "amount", "method"}, map[string]any{
			"booking_id": nonEmptyString,
			"amount":     positiveNumber,
			"method":     map[string]any{"enum": []string{"cash", "card", "bank_transfer"}},
		}),
		KindDocuments: requiredObject([]string{"owner_name", "type"}, map[string]any{
			"owner_name": nonEmptyString,
			"type":       nonEmptyString,
		}),
		KindGallery: requiredObject([]string{"title"}, map[string]any{
			"title": nonEmptyString,
		}),
	}
}
