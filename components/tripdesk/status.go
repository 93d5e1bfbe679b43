package tripdesk

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a record lifecycle state drawn from a per-kind closed set.
type Status string

// StatusAll disables status filtering.
const StatusAll Status = "all"

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusActive      Status = "active"
	StatusFeatured    Status = "featured"
	StatusArchived    Status = "archived"
	StatusDraft       Status = "draft"
	StatusPublished   Status = "published"
	StatusMaintenance Status = "maintenance"
	StatusInactive    Status = "inactive"
	StatusPaid        Status = "paid"
	StatusFailed      Status = "failed"
	StatusRefunded    Status = "refunded"
)

// Action names a status mutation endpoint.
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionCancel     Action = "cancel"
	ActionComplete   Action = "complete"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionRefund     Action = "refund"
	ActionFeature    Action = "feature"
	ActionUnfeature  Action = "unfeature"
	ActionPublish    Action = "publish"
	ActionArchive    Action = "archive"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionMaintain   Action = "maintain"
)

// PathSegment returns the sub-path used by dedicated transition endpoints.
func (a Action) PathSegment() string {
	if a == ActionFeature {
		return "featured"
	}
	return string(a)
}

// ParseAction accepts either the action name or its path segment.
func ParseAction(value string) (Action, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "featured" {
		return ActionFeature, true
	}
	switch a := Action(value); a {
	case ActionConfirm, ActionCancel, ActionComplete, ActionApprove, ActionReject, ActionRefund,
		ActionFeature, ActionUnfeature, ActionPublish, ActionArchive, ActionActivate,
		ActionDeactivate, ActionMaintain:
		return a, true
	}
	return "", false
}

var (
	// ErrIllegalTransition is returned when an action is not allowed from the current status.
	ErrIllegalTransition = errors.New("tripdesk: illegal status transition")
	// ErrUnknownAction is returned when a machine does not define the action at all.
	ErrUnknownAction = errors.New("tripdesk: unknown action")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	Kind   ResourceKind
	From   Status
	Action Action
	cause  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("tripdesk: %s cannot %s a record in status %q", e.Kind, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return e.cause }

// Transition declares one edge set of a state machine.
type Transition struct {
	Action Action
	From   []Status
	To     Status
}

// StateMachine makes the legal status moves of a resource kind explicit.
type StateMachine struct {
	kind    ResourceKind
	initial Status
	states  []Status
	known   map[Status]struct{}
	edges   map[Action]map[Status]Status
	actions []Action
}

// NewStateMachine builds a machine. The first state is the initial one.
func NewStateMachine(kind ResourceKind, states []Status, transitions []Transition) *StateMachine {
	m := &StateMachine{
		kind:   kind,
		states: append([]Status(nil), states...),
		known:  make(map[Status]struct{}, len(states)),
		edges:  make(map[Action]map[Status]Status, len(transitions)),
	}
	if len(states) > 0 {
		m.initial = states[0]
	}
	for _, s := range states {
		m.known[s] = struct{}{}
	}
	for _, t := range transitions {
		from, ok := m.edges[t.Action]
		if !ok {
			from = make(map[Status]Status, len(t.From))
			m.edges[t.Action] = from
			m.actions = append(m.actions, t.Action)
		}
		for _, s := range t.From {
			from[s] = t.To
		}
	}
	return m
}

// Kind returns the resource kind the machine governs.
func (m *StateMachine) Kind() ResourceKind { return m.kind }

// Initial returns the status new records start in.
func (m *StateMachine) Initial() Status { return m.initial }

// States returns the declared states in order.
func (m *StateMachine) States() []Status { return append([]Status(nil), m.states...) }

// Valid reports whether the status belongs to the machine.
func (m *StateMachine) Valid(s Status) bool {
	_, ok := m.known[s]
	return ok
}

// Next returns the status reached by applying action from the given status.
func (m *StateMachine) Next(from Status, action Action) (Status, error) {
	edges, ok := m.edges[action]
	if !ok {
		return "", &TransitionError{Kind: m.kind, From: from, Action: action, cause: ErrUnknownAction}
	}
	to, ok := edges[from]
	if !ok {
		return "", &TransitionError{Kind: m.kind, From: from, Action: action, cause: ErrIllegalTransition}
	}
	return to, nil
}

// Allowed lists the actions that are legal from the given status.
func (m *StateMachine) Allowed(from Status) []Action {
	var out []Action
	for _, action := range m.actions {
		if _, ok := m.edges[action][from]; ok {
			out = append(out, action)
		}
	}
	return out
}

// Actions lists every action the machine declares.
func (m *StateMachine) Actions() []Action { return append([]Action(nil), m.actions...) }

// Target returns the status an action leads to, regardless of origin.
func (m *StateMachine) Target(action Action) (Status, bool) {
	for _, to := range m.edges[action] {
		return to, true
	}
	return "", false
}
