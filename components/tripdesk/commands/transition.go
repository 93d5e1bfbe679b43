package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// TransitionRecordInput applies one status action (confirm, cancel, approve, reject,
// featured, archive...) to a record.
type TransitionRecordInput struct {
	ActorInput
	Kind   tripdesk.ResourceKind `json:"kind"`
	ID     string                `json:"id"`
	Action tripdesk.Action       `json:"action"`
	Note   string                `json:"note,omitempty"`
	Result *RecordResult         `json:"-"`
}

type transitionService interface {
	Transition(ctx context.Context, req tripdesk.TransitionRequest) (tripdesk.Record, error)
}

// TransitionRecordCommand wraps Service.Transition.
type TransitionRecordCommand struct {
	service   transitionService
	telemetry Telemetry
}

// NewTransitionRecordCommand builds a command instance.
func NewTransitionRecordCommand(service transitionService, telemetry Telemetry) *TransitionRecordCommand {
	return &TransitionRecordCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[TransitionRecordInput] = (*TransitionRecordCommand)(nil)

// Execute runs the transition.
func (c *TransitionRecordCommand) Execute(ctx context.Context, msg TransitionRecordInput) error {
	if c.service == nil {
		return errors.New("transition command requires service")
	}
	ctx = msg.bind(ctx)
	updated, err := c.service.Transition(ctx, tripdesk.TransitionRequest{
		Kind:   msg.Kind,
		ID:     msg.ID,
		Action: msg.Action,
		Note:   msg.Note,
	})
	if err != nil {
		return err
	}
	msg.Result.set(updated)
	c.telemetry.Record(ctx, "tripdesk.command.transition", map[string]any{
		"kind":   string(msg.Kind),
		"id":     msg.ID,
		"action": string(msg.Action),
		"status": string(updated.RecordStatus()),
	})
	return nil
}
