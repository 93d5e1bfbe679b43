package tripdesk

var machines = map[ResourceKind]*StateMachine{
	KindBookings: NewStateMachine(KindBookings,
		[]Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted},
		[]Transition{
			{Action: ActionConfirm, From: []Status{StatusPending}, To: StatusConfirmed},
			{Action: ActionCancel, From: []Status{StatusPending, StatusConfirmed}, To: StatusCancelled},
			{Action: ActionComplete, From: []Status{StatusConfirmed}, To: StatusCompleted},
		}),
	KindBuses: NewStateMachine(KindBuses,
		[]Status{StatusActive, StatusMaintenance, StatusInactive},
		[]Transition{
			{Action: ActionMaintain, From: []Status{StatusActive}, To: StatusMaintenance},
			{Action: ActionActivate, From: []Status{StatusMaintenance, StatusInactive}, To: StatusActive},
			{Action: ActionDeactivate, From: []Status{StatusActive, StatusMaintenance}, To: StatusInactive},
		}),
	KindCampaigns: NewStateMachine(KindCampaigns,
		[]Status{StatusPending, StatusActive, StatusFeatured, StatusArchived},
		[]Transition{
			{Action: ActionApprove, From: []Status{StatusPending}, To: StatusActive},
			{Action: ActionReject, From: []Status{StatusPending}, To: StatusArchived},
			{Action: ActionFeature, From: []Status{StatusActive}, To: StatusFeatured},
			{Action: ActionUnfeature, From: []Status{StatusFeatured}, To: StatusActive},
			{Action: ActionArchive, From: []Status{StatusPending, StatusActive, StatusFeatured}, To: StatusArchived},
		}),
	KindPackages: NewStateMachine(KindPackages,
		[]Status{StatusDraft, StatusPublished, StatusFeatured, StatusArchived},
		[]Transition{
			{Action: ActionPublish, From: []Status{StatusDraft}, To: StatusPublished},
			{Action: ActionFeature, From: []Status{StatusPublished}, To: StatusFeatured},
			{Action: ActionUnfeature, From: []Status{StatusFeatured}, To: StatusPublished},
			{Action: ActionArchive, From: []Status{StatusDraft, StatusPublished, StatusFeatured}, To: StatusArchived},
		}),
	KindPayments: NewStateMachine(KindPayments,
		[]Status{StatusPending, StatusPaid, StatusFailed, StatusRefunded},
		[]Transition{
			{Action: ActionApprove, From: []Status{StatusPending}, To: StatusPaid},
			{Action: ActionReject, From: []Status{StatusPending}, To: StatusFailed},
			{Action: ActionRefund, From: []Status{StatusPaid}, To: StatusRefunded},
		}),
	KindDocuments: NewStateMachine(KindDocuments,
		[]Status{StatusPending, StatusApproved, StatusRejected},
		[]Transition{
			{Action: ActionApprove, From: []Status{StatusPending}, To: StatusApproved},
			{Action: ActionReject, From: []Status{StatusPending}, To: StatusRejected},
		}),
	KindGallery: NewStateMachine(KindGallery,
		[]Status{StatusPending, StatusApproved, StatusRejected, StatusArchived},
		[]Transition{
			{Action: ActionApprove, From: []Status{StatusPending}, To: StatusApproved},
			{Action: ActionReject, From: []Status{StatusPending}, To: StatusRejected},
			{Action: ActionArchive, From: []Status{StatusApproved, StatusRejected}, To: StatusArchived},
		}),
}

// MachineFor returns the built-in state machine for a kind, or nil.
func MachineFor(kind ResourceKind) *StateMachine {
	return machines[kind]
}

// DefaultPerPage matches the page size the upstream API uses when none is requested.
const DefaultPerPage = 15
