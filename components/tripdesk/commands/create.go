package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// CreateRecordInput submits a new record.
type CreateRecordInput struct {
	ActorInput
	Kind    tripdesk.ResourceKind `json:"kind"`
	Payload map[string]any        `json:"payload"`
	Result  *RecordResult         `json:"-"`
}

type createService interface {
	Create(ctx context.Context, req tripdesk.CreateRequest) (tripdesk.Record, error)
}

// CreateRecordCommand wraps Service.Create.
type CreateRecordCommand struct {
	service   createService
	telemetry Telemetry
}

// NewCreateRecordCommand builds a command instance.
func NewCreateRecordCommand(service createService, telemetry Telemetry) *CreateRecordCommand {
	return &CreateRecordCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[CreateRecordInput] = (*CreateRecordCommand)(nil)

// Execute validates and submits the payload.
func (c *CreateRecordCommand) Execute(ctx context.Context, msg CreateRecordInput) error {
	if c.service == nil {
		return errors.New("create command requires service")
	}
	if msg.Payload == nil {
		return errors.New("create command requires a payload")
	}
	ctx = msg.bind(ctx)
	created, err := c.service.Create(ctx, tripdesk.CreateRequest{Kind: msg.Kind, Payload: msg.Payload})
	if err != nil {
		return err
	}
	msg.Result.set(created)
	c.telemetry.Record(ctx, "tripdesk.command.create", map[string]any{
		"kind": string(msg.Kind),
		"id":   created.RecordID(),
	})
	return nil
}
