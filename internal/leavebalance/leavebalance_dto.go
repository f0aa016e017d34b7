package leavebalance

type AdjustBalanceRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	LeaveTypeID string `json:"leave_type_id" binding:"required,uuid"`
	Year        int    `json:"year" binding:"required"`
	Delta       string `json:"delta" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

type BalanceResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	LeaveTypeID      string  `json:"leave_type_id"`
	Year             int     `json:"year"`
	TotalDays        string  `json:"total_days"`
	UsedDays         string  `json:"used_days"`
	RemainingDays    string  `json:"remaining_days"`
	CarriedOverDays  string  `json:"carried_over_days"`
	AdjustmentDays   string  `json:"adjustment_days"`
	AdjustmentReason *string `json:"adjustment_reason,omitempty"`
	AdjustedBy       *string `json:"adjusted_by,omitempty"`
}

type CarryOverSummary struct {
	FromYear  int `json:"from_year"`
	ToYear    int `json:"to_year"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
