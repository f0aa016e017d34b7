package leaverequest

type Status string

const (
	StatusPendingManager      Status = "pending_manager"
	StatusPendingHR           Status = "pending_hr"
	StatusApproved            Status = "approved"
	StatusRejectedByManager   Status = "rejected_by_manager"
	StatusRejectedByHR        Status = "rejected_by_hr"
	StatusAppealed            Status = "appealed"
	StatusCancelled           Status = "cancelled"
	StatusPendingCancellation Status = "pending_cancellation"
)

type Action string

const (
	ActionManagerApprove      Action = "manager_approve"
	ActionManagerReject       Action = "manager_reject"
	ActionHRApprove           Action = "hr_approve"
	ActionHRReject            Action = "hr_reject"
	ActionAppeal              Action = "appeal"
	ActionReopen              Action = "reopen"
	ActionCancelOwn           Action = "cancel_own"
	ActionRequestCancellation Action = "request_cancellation"
	ActionApproveCancellation Action = "approve_cancellation"
	ActionRejectCancellation  Action = "reject_cancellation"
)

// allowedActions is the single source of truth for which actions are legal
// from which status. Anything not listed here is an invalid transition.
var allowedActions = map[Status][]Action{
	StatusPendingManager:      {ActionManagerApprove, ActionManagerReject, ActionCancelOwn},
	StatusPendingHR:           {ActionHRApprove, ActionHRReject, ActionCancelOwn},
	StatusApproved:            {ActionRequestCancellation},
	StatusRejectedByManager:   {ActionAppeal},
	StatusRejectedByHR:        {ActionAppeal},
	StatusAppealed:            {ActionReopen},
	StatusPendingCancellation: {ActionApproveCancellation, ActionRejectCancellation},
}

func actionAllowed(s Status, a Action) bool {
	for _, allowed := range allowedActions[s] {
		if allowed == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further action can move the request.
// Rejected states are not terminal: the appeal action can still re-open them.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusCancelled
}
