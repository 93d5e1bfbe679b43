package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// DeleteRecordInput identifies the record to remove.
type DeleteRecordInput struct {
	ActorInput
	Kind tripdesk.ResourceKind `json:"kind"`
	ID   string                `json:"id"`
}

type deleteService interface {
	Delete(ctx context.Context, req tripdesk.DeleteRequest) error
}

// DeleteRecordCommand wraps Service.Delete. Conflicts come back unchanged so the caller
// can surface the server's message.
type DeleteRecordCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteRecordCommand builds a command instance.
func NewDeleteRecordCommand(service deleteService, telemetry Telemetry) *DeleteRecordCommand {
	return &DeleteRecordCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteRecordInput] = (*DeleteRecordCommand)(nil)

// Execute removes the record.
func (c *DeleteRecordCommand) Execute(ctx context.Context, msg DeleteRecordInput) error {
	if c.service == nil {
		return errors.New("delete command requires service")
	}
	ctx = msg.bind(ctx)
	if err := c.service.Delete(ctx, tripdesk.DeleteRequest{Kind: msg.Kind, ID: msg.ID}); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "tripdesk.command.delete", map[string]any{
		"kind": string(msg.Kind),
		"id":   msg.ID,
	})
	return nil
}
