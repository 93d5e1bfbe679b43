package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// LogoutInput ends the current session.
type LogoutInput struct {
	ActorInput
	Reason string `json:"reason,omitempty"`
}

type logoutSession interface {
	Logout(ctx context.Context) error
}

// LogoutCommand clears the stored token. The session publishes the sign-out event, so
// live views learn about it through their subscription.
type LogoutCommand struct {
	session   logoutSession
	telemetry Telemetry
}

// NewLogoutCommand builds a command instance.
func NewLogoutCommand(session logoutSession, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute logs out.
func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutInput) error {
	if c.session == nil {
		return errors.New("logout command requires session")
	}
	if err := c.session.Logout(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "tripdesk.command.logout", map[string]any{
		"reason":  msg.Reason,
		"user_id": msg.UserID,
	})
	return nil
}
