package events

import "time"

const LeaveRequestTopic = "hr.leave.request.v1"

const (
	LeaveRequestSubmitted             = "leave_request_submitted"
	LeaveRequestManagerApproved       = "leave_request_manager_approved"
	LeaveRequestManagerRejected       = "leave_request_manager_rejected"
	LeaveRequestHRApproved            = "leave_request_hr_approved"
	LeaveRequestHRRejected            = "leave_request_hr_rejected"
	LeaveRequestAppealed              = "leave_request_appealed"
	LeaveRequestAppealReopened        = "leave_request_appeal_reopened"
	LeaveRequestCancellationRequested = "leave_request_cancellation_requested"
	LeaveRequestCancellationRejected  = "leave_request_cancellation_rejected"
	LeaveRequestCancelled             = "leave_request_cancelled"
)

// LeaveRequestEvent is the payload published for every status transition.
// TotalDays is serialized as a string to keep half-day precision exact.
type LeaveRequestEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	LeaveRequestID string    `json:"leave_request_id"`
	RequestNumber  string    `json:"request_number"`
	UserID         string    `json:"user_id"`
	LeaveTypeID    string    `json:"leave_type_id"`
	LeaveTypeCode  string    `json:"leave_type_code"`
	Status         string    `json:"status"`
	TotalDays      string    `json:"total_days"`
	ActorID        string    `json:"actor_id"`
	Comments       string    `json:"comments,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
