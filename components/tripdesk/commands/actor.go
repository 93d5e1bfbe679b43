package commands

import (
	"context"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// ActorInput identifies who issued a command. Embedded in every command input.
type ActorInput struct {
	ActorID  string `json:"actor_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

func (a ActorInput) bind(ctx context.Context) context.Context {
	if a == (ActorInput{}) {
		return ctx
	}
	return tripdesk.WithActor(ctx, tripdesk.Actor{
		ActorID:  a.ActorID,
		UserID:   a.UserID,
		TenantID: a.TenantID,
		Locale:   a.Locale,
	})
}

// RecordResult receives the record produced by a command. Commanders only return errors,
// so transports that need the record pass one in.
type RecordResult struct {
	Record tripdesk.Record
}

func (r *RecordResult) set(rec tripdesk.Record) {
	if r != nil {
		r.Record = rec
	}
}
