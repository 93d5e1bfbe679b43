package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/components/tripdesk/commands"
)

// Executor is the transport-facing surface shared by the net/http handlers and the
// go-router adapter.
type Executor interface {
	Browse(ctx context.Context, req tripdesk.BrowseRequest) (tripdesk.ListView, error)
	Chart(ctx context.Context, req tripdesk.StatusChartRequest) (string, error)
	Transition(ctx context.Context, input commands.TransitionRecordInput) (tripdesk.Record, error)
	Create(ctx context.Context, input commands.CreateRecordInput) (tripdesk.Record, error)
	Delete(ctx context.Context, input commands.DeleteRecordInput) error
	Logout(ctx context.Context, input commands.LogoutInput) error
}

// CommandExecutor dispatches to go-command commanders and queriers.
type CommandExecutor struct {
	BrowseQuery       gocommand.Querier[tripdesk.BrowseRequest, tripdesk.ListView]
	ChartQuery        gocommand.Querier[tripdesk.StatusChartRequest, string]
	TransitionCommand gocommand.Commander[commands.TransitionRecordInput]
	CreateCommand     gocommand.Commander[commands.CreateRecordInput]
	DeleteCommand     gocommand.Commander[commands.DeleteRecordInput]
	LogoutCommand     gocommand.Commander[commands.LogoutInput]
}

var _ Executor = (*CommandExecutor)(nil)

var errNotConfigured = errors.New("httpapi: operation not configured")

// Browse implements Executor.
func (e *CommandExecutor) Browse(ctx context.Context, req tripdesk.BrowseRequest) (tripdesk.ListView, error) {
	if e.BrowseQuery == nil {
		return tripdesk.ListView{}, errNotConfigured
	}
	return e.BrowseQuery.Query(ctx, req)
}

// Chart implements Executor.
func (e *CommandExecutor) Chart(ctx context.Context, req tripdesk.StatusChartRequest) (string, error) {
	if e.ChartQuery == nil {
		return "", errNotConfigured
	}
	return e.ChartQuery.Query(ctx, req)
}

// Transition implements Executor.
func (e *CommandExecutor) Transition(ctx context.Context, input commands.TransitionRecordInput) (tripdesk.Record, error) {
	if e.TransitionCommand == nil {
		return nil, errNotConfigured
	}
	result := &commands.RecordResult{}
	input.Result = result
	if err := e.TransitionCommand.Execute(ctx, input); err != nil {
		return nil, err
	}
	return result.Record, nil
}

// Create implements Executor.
func (e *CommandExecutor) Create(ctx context.Context, input commands.CreateRecordInput) (tripdesk.Record, error) {
	if e.CreateCommand == nil {
		return nil, errNotConfigured
	}
	result := &commands.RecordResult{}
	input.Result = result
	if err := e.CreateCommand.Execute(ctx, input); err != nil {
		return nil, err
	}
	return result.Record, nil
}

// Delete implements Executor.
func (e *CommandExecutor) Delete(ctx context.Context, input commands.DeleteRecordInput) error {
	if e.DeleteCommand == nil {
		return errNotConfigured
	}
	return e.DeleteCommand.Execute(ctx, input)
}

// Logout implements Executor.
func (e *CommandExecutor) Logout(ctx context.Context, input commands.LogoutInput) error {
	if e.LogoutCommand == nil {
		return errNotConfigured
	}
	return e.LogoutCommand.Execute(ctx, input)
}
