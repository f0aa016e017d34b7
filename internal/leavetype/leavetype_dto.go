package leavetype

type CreateLeaveTypeRequest struct {
	Code                     string   `json:"code" binding:"required,max=30"`
	Name                     string   `json:"name" binding:"required,max=100"`
	DaysPerYear              string   `json:"days_per_year" binding:"required"`
	IsPaid                   *bool    `json:"is_paid"`
	GenderSpecific           string   `json:"gender_specific" binding:"omitempty,oneof=male female"`
	RequiresMedicalCert      bool     `json:"requires_medical_cert"`
	MedicalCertDaysThreshold string   `json:"medical_cert_days_threshold"`
	CarryOverAllowed         bool     `json:"carry_over_allowed"`
	MaxCarryOverDays         string   `json:"max_carry_over_days"`
	RequiresManagerApproval  *bool    `json:"requires_manager_approval"`
	RequiresHRApproval       *bool    `json:"requires_hr_approval"`
	CanApproveRoles          []string `json:"can_approve_roles"`
	SkipManagerForRoles      []string `json:"skip_manager_for_roles"`
}

type UpdateLeaveTypeRequest struct {
	Name                     string   `json:"name" binding:"required,max=100"`
	DaysPerYear              string   `json:"days_per_year" binding:"required"`
	IsPaid                   *bool    `json:"is_paid"`
	GenderSpecific           string   `json:"gender_specific" binding:"omitempty,oneof=male female"`
	RequiresMedicalCert      bool     `json:"requires_medical_cert"`
	MedicalCertDaysThreshold string   `json:"medical_cert_days_threshold"`
	CarryOverAllowed         bool     `json:"carry_over_allowed"`
	MaxCarryOverDays         string   `json:"max_carry_over_days"`
	RequiresManagerApproval  *bool    `json:"requires_manager_approval"`
	RequiresHRApproval       *bool    `json:"requires_hr_approval"`
	CanApproveRoles          []string `json:"can_approve_roles"`
	SkipManagerForRoles      []string `json:"skip_manager_for_roles"`
	IsActive                 *bool    `json:"is_active"`
}

type LeaveTypeResponse struct {
	ID                       string   `json:"id"`
	Code                     string   `json:"code"`
	Name                     string   `json:"name"`
	DaysPerYear              string   `json:"days_per_year"`
	IsPaid                   bool     `json:"is_paid"`
	GenderSpecific           string   `json:"gender_specific,omitempty"`
	RequiresMedicalCert      bool     `json:"requires_medical_cert"`
	MedicalCertDaysThreshold string   `json:"medical_cert_days_threshold"`
	CarryOverAllowed         bool     `json:"carry_over_allowed"`
	MaxCarryOverDays         string   `json:"max_carry_over_days"`
	RequiresManagerApproval  bool     `json:"requires_manager_approval"`
	RequiresHRApproval       bool     `json:"requires_hr_approval"`
	CanApproveRoles          []string `json:"can_approve_roles"`
	SkipManagerForRoles      []string `json:"skip_manager_for_roles"`
	IsActive                 bool     `json:"is_active"`
}
