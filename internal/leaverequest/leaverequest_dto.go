package leaverequest

type SubmitLeaveRequest struct {
	LeaveTypeID           string  `json:"leave_type_id" binding:"required,uuid"`
	StartDate             string  `json:"start_date" binding:"required"`
	EndDate               string  `json:"end_date" binding:"required"`
	Duration              string  `json:"duration" binding:"omitempty,oneof=full_day half_day_am half_day_pm custom_hours"`
	CustomStartTime       *string `json:"custom_start_time"`
	CustomEndTime         *string `json:"custom_end_time"`
	Reason                string  `json:"reason"`
	AttachmentRef         *string `json:"attachment_ref"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	AvailabilityTag       *string `json:"availability_tag"`
}

type DecisionRequest struct {
	Approve  bool   `json:"approve"`
	Comments string `json:"comments"`
}

type AppealRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type CancellationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ListFilter struct {
	UserID      string
	Status      string
	LeaveTypeID string
	Page        int
	PageSize    int
}

type LeaveRequestResponse struct {
	ID              string  `json:"id"`
	RequestNumber   string  `json:"request_number"`
	UserID          string  `json:"user_id"`
	LeaveTypeID     string  `json:"leave_type_id"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Duration        string  `json:"duration"`
	CustomStartTime *string `json:"custom_start_time,omitempty"`
	CustomEndTime   *string `json:"custom_end_time,omitempty"`
	TotalDays       string  `json:"total_days"`
	Reason          string  `json:"reason"`
	AttachmentRef   *string `json:"attachment_ref,omitempty"`
	Status          string  `json:"status"`

	ManagerID        *string `json:"manager_id,omitempty"`
	ManagerDecidedBy *string `json:"manager_decided_by,omitempty"`
	ManagerDecidedAt *string `json:"manager_decided_at,omitempty"`
	ManagerComments  *string `json:"manager_comments,omitempty"`

	HRDecidedBy *string `json:"hr_decided_by,omitempty"`
	HRDecidedAt *string `json:"hr_decided_at,omitempty"`
	HRComments  *string `json:"hr_comments,omitempty"`

	AppealReason *string `json:"appeal_reason,omitempty"`
	AppealedAt   *string `json:"appealed_at,omitempty"`

	CancellationReason     *string `json:"cancellation_reason,omitempty"`
	CancellationDecidedBy  *string `json:"cancellation_decided_by,omitempty"`
	CancellationDecidedAt  *string `json:"cancellation_decided_at,omitempty"`
	CancellationHRComments *string `json:"cancellation_hr_comments,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
